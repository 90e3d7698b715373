// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"maps"
	"slices"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Namespace is one prefix binding published by the store.
type Namespace struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	IRI    string `json:"namespace" yaml:"namespace"`
}

// Registry is an immutable prefix to namespace mapping. It is safe for
// concurrent use without synchronization.
type Registry struct {
	ns map[string]string
}

// NewRegistry builds a registry. Repeating a prefix with the same namespace
// is accepted; binding it to two namespaces is an error.
func NewRegistry(namespaces []Namespace) (*Registry, error) {
	r := &Registry{ns: make(map[string]string, len(namespaces))}
	for _, n := range namespaces {
		if prev, ok := r.ns[n.Prefix]; ok && prev != n.IRI {
			return nil, sigilerr.New(sigilerr.CodeGraphDBResponseInvalid,
				"namespace registry: prefix bound to two namespaces",
				sigilerr.Field("prefix", n.Prefix),
				sigilerr.Field("namespaces", []string{prev, n.IRI}),
			)
		}
		r.ns[n.Prefix] = n.IRI
	}
	return r, nil
}

// Lookup returns the canonical namespace for prefix.
func (r *Registry) Lookup(prefix string) (string, bool) {
	if r == nil {
		return "", false
	}
	ns, ok := r.ns[prefix]
	return ns, ok
}

// Len returns the number of prefixes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ns)
}

// Namespaces returns all bindings sorted by prefix.
func (r *Registry) Namespaces() []Namespace {
	if r == nil {
		return nil
	}
	out := make([]Namespace, 0, len(r.ns))
	for _, p := range slices.Sorted(maps.Keys(r.ns)) {
		out = append(out, Namespace{Prefix: p, IRI: r.ns[p]})
	}
	return out
}
