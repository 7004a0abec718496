// Package store defines the document-store boundary the engine is layered
// on: live collection queries, point reads, merge upserts, deletes, and the
// server-assigned-timestamp sentinel. The engine never assumes anything
// about the backing engine beyond this interface; see the firestore and
// memory sub-packages for the two implementations.
package store

import "context"

// Direction orders a query field.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is a single equality-style constraint. Op is the comparison
// operator in the store's syntax ("==" is the only one the engine uses).
type Filter struct {
	Field string
	Op    string
	Value any
}

// Order is a sort key applied server-side to a collection query.
type Order struct {
	Field string
	Dir   Direction
}

// Query describes a collection-level live query: filters plus order-bys.
// The zero Query matches every document in the collection, unordered.
type Query struct {
	Filters []Filter
	Orders  []Order
}

// Where appends an equality filter.
func (q Query) Where(field, op string, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy appends a sort key.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(q.Orders, Order{Field: field, Dir: dir})
	return q
}

// Document is one stored document: its id within the collection and its
// field map as the store produced it.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is the full result set of a live query at one point in time.
// Emissions within one subscription arrive in store order; no ordering is
// guaranteed across different subscriptions.
type Snapshot struct {
	Docs []Document
}

// DisposeFunc cancels a subscription. Implementations must be idempotent:
// a disposer may be invoked more than once, from any goroutine.
type DisposeFunc func()

// serverTimestamp is the type of the ServerTimestamp sentinel.
type serverTimestamp struct{}

// ServerTimestamp is a write-time placeholder resolved by the store to its
// own clock. The client clock is never used for stored timestamps.
var ServerTimestamp = serverTimestamp{}

// Store is the document store as consumed by the engine.
type Store interface {
	// Watch opens a live subscription on a collection query. onSnapshot is
	// invoked with the full current result set on every change; onError is
	// invoked if the subscription fails (the subscription is dead after an
	// error). The returned disposer cancels the subscription.
	Watch(ctx context.Context, collection string, q Query, onSnapshot func(Snapshot), onError func(error)) DisposeFunc

	// Get performs a point read. ok is false when the document does not exist.
	Get(ctx context.Context, path string) (doc Document, ok bool, err error)

	// List performs a one-shot collection query.
	List(ctx context.Context, collection string, q Query) ([]Document, error)

	// Set upserts a document. With merge, only the given fields are
	// replaced; without, the document is overwritten.
	Set(ctx context.Context, path string, fields map[string]any, merge bool) error

	// Add creates a document with a store-allocated id and returns the id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
}
