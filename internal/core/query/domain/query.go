// Package domain contains the vocabulary shared by the query front end,
// the graph builder and the connectors.
package domain

import "strings"

// Action is the kind of operation a request performs on a model.
type Action string

const (
	// FindMany finds multiple records.
	FindMany Action = "findMany"
	// FindFirst finds the first matching record.
	FindFirst Action = "findFirst"
	// FindUnique finds a record by a unique field.
	FindUnique Action = "findUnique"
	// Count counts matching records.
	Count Action = "count"
	// CreateOne creates a record.
	CreateOne Action = "createOne"
	// UpdateOne updates a record addressed by a unique field.
	UpdateOne Action = "updateOne"
	// UpdateMany updates all matching records.
	UpdateMany Action = "updateMany"
	// DeleteOne deletes a record addressed by a unique field.
	DeleteOne Action = "deleteOne"
	// DeleteMany deletes all matching records.
	DeleteMany Action = "deleteMany"
)

// Actions lists every action, longest names first so prefix matching
// never picks a shorter action that happens to prefix a longer one.
var Actions = []Action{
	FindUnique, UpdateMany, DeleteMany, FindFirst, CreateOne,
	UpdateOne, DeleteOne, FindMany, Count,
}

// IsWrite reports whether the action mutates data.
func (a Action) IsWrite() bool {
	switch a {
	case CreateOne, UpdateOne, UpdateMany, DeleteOne, DeleteMany:
		return true
	}
	return false
}

// SplitAction splits a top-level field name such as "findManyUser" into
// its action and model name.
func SplitAction(field string) (Action, string, bool) {
	for _, a := range Actions {
		if model, ok := strings.CutPrefix(field, string(a)); ok && model != "" {
			return a, model, true
		}
	}
	return "", "", false
}

// SortDirection represents sort direction.
type SortDirection string

const (
	// Asc is ascending order.
	Asc SortDirection = "asc"
	// Desc is descending order.
	Desc SortDirection = "desc"
)

// OrderBy is one ordering key.
type OrderBy struct {
	Field     string
	Direction SortDirection
}

// Pagination limits a read.
type Pagination struct {
	Skip *int
	Take *int
}
