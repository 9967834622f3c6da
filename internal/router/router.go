// Package router resolves meeting topics to destination folder identifiers
package router

import (
	"strings"

	"github.com/meetops/zoom-to-drive/internal/config"
)

// FolderRouter maps topics to folder IDs by ordered keyword matching
type FolderRouter struct {
	routes          []config.FolderRoute
	defaultFolderID string
}

// New creates a router over the configured routes. Route order is
// significant: the first matching keyword wins.
func New(routes []config.FolderRoute, defaultFolderID string) *FolderRouter {
	return &FolderRouter{
		routes:          routes,
		defaultFolderID: defaultFolderID,
	}
}

// Resolve returns the folder ID for the first route whose keyword appears in
// the topic, compared case-insensitively. Topics matching no route go to the
// default folder.
func (r *FolderRouter) Resolve(topic string) string {
	lowered := strings.ToLower(topic)
	for _, route := range r.routes {
		if strings.Contains(lowered, strings.ToLower(route.Keyword)) {
			return route.FolderID
		}
	}
	return r.defaultFolderID
}
