// Package storetest provides an in-memory store.Backend for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dental-clinic-server/internal/store"
)

// Memory is a goroutine-safe in-memory backend. Records get sequential ids and
// strictly increasing creation times so ordering is deterministic.
type Memory struct {
	mu      sync.Mutex
	data    map[string]map[string]store.Record
	seq     int
	clock   time.Time
	noIndex map[string]map[string]bool

	// FailList, when set, is consulted before every List call.
	FailList func(collection string, q store.Query) error
	// FailCreate, when set, is consulted before every Create call.
	FailCreate func(collection string, fields map[string]interface{}) error
	// FailUpdate, when set, is consulted before every Update call.
	FailUpdate func(collection, id string) error

	// Calls records every operation in order, e.g. "create:reports".
	Calls []string
}

// NewMemory returns an empty backend.
func NewMemory() *Memory {
	return &Memory{
		data:    map[string]map[string]store.Record{},
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		noIndex: map[string]map[string]bool{},
	}
}

// Unindex makes filters on the given fields of a collection fail with
// store.ErrUnsupportedQuery.
func (m *Memory) Unindex(collection string, fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noIndex[collection] == nil {
		m.noIndex[collection] = map[string]bool{}
	}
	for _, f := range fields {
		m.noIndex[collection][f] = true
	}
}

// Len returns the number of records in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[collection])
}

// CallCount returns how many recorded calls start with prefix.
func (m *Memory) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *Memory) Create(_ context.Context, collection string, fields map[string]interface{}) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "create:"+collection)

	if m.FailCreate != nil {
		if err := m.FailCreate(collection, fields); err != nil {
			return store.Record{}, err
		}
	}

	m.seq++
	m.clock = m.clock.Add(time.Second)
	rec := store.Record{
		ID:        fmt.Sprintf("%s-%d", collection, m.seq),
		CreatedAt: m.clock,
		UpdatedAt: m.clock,
		Fields:    copyFields(fields),
	}
	if m.data[collection] == nil {
		m.data[collection] = map[string]store.Record{}
	}
	m.data[collection][rec.ID] = rec
	return cloneRecord(rec), nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "get:"+collection)

	rec, ok := m.data[collection][id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) List(_ context.Context, collection string, q store.Query) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "list:"+collection)

	if m.FailList != nil {
		if err := m.FailList(collection, q); err != nil {
			return store.Page{}, err
		}
	}
	for _, f := range q.Filters {
		if err := m.checkIndexed(collection, f); err != nil {
			return store.Page{}, err
		}
	}

	var matched []store.Record
	for _, rec := range m.data[collection] {
		if matchesAll(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.Desc {
			return lessBy(matched[j], matched[i], q.OrderBy)
		}
		return lessBy(matched[i], matched[j], q.OrderBy)
	})

	total := int64(len(matched))
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]store.Record, len(matched))
	for i, rec := range matched {
		out[i] = cloneRecord(rec)
	}
	return store.Page{Records: out, Total: total}, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]interface{}) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "update:"+collection)

	if m.FailUpdate != nil {
		if err := m.FailUpdate(collection, id); err != nil {
			return store.Record{}, err
		}
	}

	rec, ok := m.data[collection][id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	rec = cloneRecord(rec)
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Millisecond)
	m.data[collection][id] = rec
	return cloneRecord(rec), nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "delete:"+collection)

	if _, ok := m.data[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) checkIndexed(collection string, f store.Filter) error {
	if f.Op == store.OpOr {
		for _, sub := range f.Any {
			if err := m.checkIndexed(collection, sub); err != nil {
				return err
			}
		}
		return nil
	}
	if m.noIndex[collection][f.Field] {
		return fmt.Errorf("%w: field %s is not indexed", store.ErrUnsupportedQuery, f.Field)
	}
	return nil
}

func matchesAll(rec store.Record, filters []store.Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec store.Record, f store.Filter) bool {
	switch f.Op {
	case store.OpEqual:
		return fieldValue(rec, f.Field) == f.Value
	case store.OpSearch:
		return strings.Contains(strings.ToLower(fieldValue(rec, f.Field)), strings.ToLower(f.Value))
	case store.OpOr:
		for _, sub := range f.Any {
			if matches(rec, sub) {
				return true
			}
		}
	}
	return false
}

func fieldValue(rec store.Record, field string) string {
	if field == store.FieldID {
		return rec.ID
	}
	return rec.String(field)
}

func lessBy(a, b store.Record, field string) bool {
	switch field {
	case "", store.FieldCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	case store.FieldUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return fieldValue(a, field) < fieldValue(b, field)
	}
}

func cloneRecord(rec store.Record) store.Record {
	rec.Fields = copyFields(rec.Fields)
	return rec
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

var _ store.Backend = (*Memory)(nil)
