package parser

import (
	"sort"
	"strings"

	"gitlab-metrics/internal/model"
)

// Registry indexes parsers by lower-cased event kind. It is built once and
// only read afterwards.
type Registry struct {
	parsers map[model.EventKind]Parser
}

// NewRegistry indexes the given parsers. A later parser replaces an earlier
// one of the same kind.
func NewRegistry(parsers ...Parser) *Registry {
	m := make(map[model.EventKind]Parser, len(parsers))
	for _, p := range parsers {
		m[model.EventKind(strings.ToLower(string(p.EventKind())))] = p
	}
	return &Registry{parsers: m}
}

// Default returns a registry holding the push, merge request and issue parsers.
func Default() *Registry {
	return NewRegistry(NewPushParser(), NewMergeRequestParser(), NewIssueParser())
}

func (r *Registry) Lookup(kind model.EventKind) (Parser, bool) {
	p, ok := r.parsers[kind]
	return p, ok
}

// Kinds returns the registered kinds in a stable order.
func (r *Registry) Kinds() []model.EventKind {
	kinds := make([]model.EventKind, 0, len(r.parsers))
	for k := range r.parsers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
