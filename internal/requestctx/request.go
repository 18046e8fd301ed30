// Package requestctx carries request-scoped state: the viewer identity and the
// association loaders for one inbound request. The HTTP layer keeps it in the
// fiber context locals (see middleware.Request).
package requestctx

import (
	"github.com/divakaivan/my-reddit-server/internal/loader"
)

// Request is built once per inbound request and discarded with it.
type Request struct {
	viewerID int64
	Loaders  *loader.Loaders
}

// New creates a request for viewerID (0 = anonymous) with fresh loaders over src.
func New(viewerID int64, src loader.Source) *Request {
	if viewerID < 0 {
		viewerID = 0
	}
	return &Request{viewerID: viewerID, Loaders: loader.NewLoaders(src)}
}

// Viewer returns the authenticated user id, or false for an anonymous viewer.
func (r *Request) Viewer() (int64, bool) {
	if r == nil || r.viewerID == 0 {
		return 0, false
	}
	return r.viewerID, true
}
