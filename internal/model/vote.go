package model

import (
	"fmt"
	"strings"
)

// Direction is the sign of a vote.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

// Valid reports whether d is Up or Down.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}

// ParseDirection accepts "up"/"down" and "1"/"-1".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "1", "+1":
		return Up, nil
	case "down", "-1":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// VoteKey identifies a ledger entry.
type VoteKey struct {
	ViewerID int64
	PostID   int64
}

// Vote is one ledger entry.
type Vote struct {
	ViewerID  int64
	PostID    int64
	Direction Direction
}

// VoteRequest is the API request body for casting a vote.
type VoteRequest struct {
	Value     *int   `json:"value"`
	Direction string `json:"direction"`
}
