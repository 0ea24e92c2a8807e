// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps raw source metadata to prioritized download candidates.
// Implements: prd002-resolution (R1-R3);
//
//	docs/ARCHITECTURE § Location Registry.
package resolve

import (
	"encoding/json"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Plugin pairs a metadata detector with its location mapper. Match reports
// whether the plugin understands a record's raw metadata; Map translates
// the metadata into candidates carrying the plugin's priority bands. Both
// treat the blob as read-only.
type Plugin struct {
	Name  string
	Match func(meta json.RawMessage) bool
	Map   func(meta json.RawMessage) []types.Location
}

// Registry tries plugins in registration order; the first Match wins.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns a registry with the built-in OpenAlex plugin.
func NewRegistry() *Registry {
	return &Registry{plugins: []Plugin{openAlexPlugin()}}
}

// Register appends a plugin. Order determines match precedence.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
}

// Detect returns the name of the first plugin claiming meta, or "" when no
// plugin recognizes it.
func (r *Registry) Detect(meta json.RawMessage) string {
	for _, p := range r.plugins {
		if p.Match(meta) {
			return p.Name
		}
	}
	return ""
}

// Resolve maps raw metadata to a normalized candidate list. A record no
// plugin recognizes resolves to an empty list, not an error (R1.3).
func (r *Registry) Resolve(meta json.RawMessage) []types.Location {
	for _, p := range r.plugins {
		if p.Match(meta) {
			return types.NormalizeLocations(p.Map(meta))
		}
	}
	return nil
}
