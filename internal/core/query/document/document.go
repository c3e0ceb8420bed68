// Package document holds the parsed form of a query request: an ordered
// list of operations, each naming an action on a model with an argument
// tree and a selection set.
package document

import (
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
)

// Document is an ordered batch of operations. It is never mutated after
// parsing.
type Document struct {
	Operations []Operation
}

// Operation is one top-level request.
type Operation struct {
	// Key names the operation in the response envelope: the alias when one
	// is given, otherwise the field name.
	Key       string
	Action    domain.Action
	Model     string
	Arguments map[string]any
	Selection []Selection
}

// Selection is one requested output field. Relation selections carry their
// own arguments and nested selection.
type Selection struct {
	Key       string
	Name      string
	Arguments map[string]any
	Nested    []Selection
}

// IsNested reports whether the selection has a sub-selection.
func (s Selection) IsNested() bool { return s.Nested != nil }
