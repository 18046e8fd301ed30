// Package cursor provides opaque feed pagination token encoding/decoding.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is the position of the last item seen on a feed page.
type Cursor struct {
	// CreatedAt is the creation time of the last item, in unix microseconds.
	CreatedAt int64 `json:"t"`
	// ID breaks ties between items created in the same microsecond.
	ID int64 `json:"id"`
}

// After returns the cursor positioned on an item.
func After(createdAt time.Time, id int64) Cursor {
	return Cursor{CreatedAt: createdAt.UnixMicro(), ID: id}
}

// Time returns the creation time encoded in the cursor.
func (c Cursor) Time() time.Time {
	return time.UnixMicro(c.CreatedAt).UTC()
}

// Encode encodes a cursor to an opaque URL-safe string.
func Encode(c Cursor) string {
	// Marshalling two int64 fields cannot fail.
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode decodes an opaque token produced by Encode.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.CreatedAt <= 0 || c.ID <= 0 {
		return Cursor{}, fmt.Errorf("cursor position out of range")
	}
	return c, nil
}
