// Package store defines the document-storage collaborator the clinic domain talks to.
//
// Records are loosely typed field maps keyed by collection. Domain packages translate
// them into fixed model types at their repository boundary and never hand a Record
// further up.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection names.
const (
	Appointments    = "appointments"
	Reports         = "reports"
	Medicines       = "medicines"
	Documents       = "documents"
	ContactMessages = "contact_messages"
)

// Reserved field names every record carries.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var (
	// ErrNotFound is returned when a record id does not exist in a collection.
	ErrNotFound = errors.New("store: record not found")
	// ErrUnsupportedQuery is returned when a filter or ordering targets a field the
	// backend cannot query (not indexed, unknown) or combines filters it cannot serve.
	ErrUnsupportedQuery = errors.New("store: unsupported query")
	// ErrUnknownCollection is returned for collection names the backend was not configured with.
	ErrUnknownCollection = errors.New("store: unknown collection")
)

// Record is a stored document: a storage-assigned id, timestamps and free-form fields.
type Record struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]interface{}
}

// String returns the field as a string, or "" when absent or null.
func (r Record) String(field string) string {
	return AsString(r.Fields[field])
}

// AsString normalizes the value shapes storage drivers hand back into a string.
func AsString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// AsTime converts a stored timestamp value into a time.Time.
func AsTime(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val != nil {
			return *val
		}
	case string:
		return parseStoredTime(val)
	case []byte:
		return parseStoredTime(string(val))
	}
	return time.Time{}
}

func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Op is a filter operator.
type Op int

const (
	OpEqual Op = iota
	OpSearch
	OpOr
)

// Filter is one query condition. OpOr filters combine Any with OR semantics.
type Filter struct {
	Op    Op
	Field string
	Value string
	Any   []Filter
}

// Equal matches records whose field equals value exactly.
func Equal(field, value string) Filter {
	return Filter{Op: OpEqual, Field: field, Value: value}
}

// Search matches records whose field contains value.
func Search(field, value string) Filter {
	return Filter{Op: OpSearch, Field: field, Value: value}
}

// Or matches records satisfying any of the given filters.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Any: filters}
}

func (f Filter) String() string {
	switch f.Op {
	case OpEqual:
		return fmt.Sprintf("equal(%s,%q)", f.Field, f.Value)
	case OpSearch:
		return fmt.Sprintf("search(%s,%q)", f.Field, f.Value)
	case OpOr:
		parts := make([]string, len(f.Any))
		for i, sub := range f.Any {
			parts[i] = sub.String()
		}
		return "or(" + strings.Join(parts, ",") + ")"
	}
	return "unknown"
}

// Query is a list request: filters ANDed together, one ordering, and a page window.
// A zero Limit means no limit.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Page is the result of a list call. Total counts every matching record, not just
// the ones inside the window.
type Page struct {
	Records []Record
	Total   int64
}

// Backend is the storage collaborator.
type Backend interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	List(ctx context.Context, collection string, q Query) (Page, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}
