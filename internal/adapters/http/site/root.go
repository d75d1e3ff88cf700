// Package site serves the embedded user guide.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("docs site serve failed")
)

// Register mounts the embedded guide under /docs/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/docs/", http.StripPrefix("/docs/", http.FileServer(FS())))
}
