package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection describes how one collection maps onto a gorm model table.
type Collection struct {
	// New returns a fresh pointer to the gorm model backing the collection.
	New func() interface{}
	// Fields lists the writable columns besides id and timestamps.
	Fields []string
	// Indexed lists the columns that filters may target.
	Indexed []string
}

func (c Collection) writable(field string) bool {
	return contains(c.Fields, field)
}

func (c Collection) queryable(field string) bool {
	return field == FieldID || contains(c.Indexed, field)
}

func (c Collection) orderable(field string) bool {
	return field == FieldCreatedAt || field == FieldUpdatedAt || c.queryable(field)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// GormBackend serves the document API from MySQL tables through gorm.
type GormBackend struct {
	db          *gorm.DB
	collections map[string]Collection
}

// NewGormBackend creates a backend over db for the given collections.
func NewGormBackend(db *gorm.DB, collections map[string]Collection) *GormBackend {
	return &GormBackend{db: db, collections: collections}
}

func (b *GormBackend) collection(name string) (Collection, error) {
	c, ok := b.collections[name]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Create inserts a record, assigning its id and timestamps.
func (b *GormBackend) Create(ctx context.Context, collection string, fields map[string]interface{}) (Record, error) {
	c, err := b.collection(collection)
	if err != nil {
		return Record{}, err
	}

	row := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		if !c.writable(k) {
			return Record{}, fmt.Errorf("store: %s has no field %q", collection, k)
		}
		row[k] = v
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	row[FieldID] = id
	row[FieldCreatedAt] = now
	row[FieldUpdatedAt] = now

	if err := b.db.WithContext(ctx).Model(c.New()).Create(row).Error; err != nil {
		return Record{}, fmt.Errorf("store: create %s: %w", collection, err)
	}

	return Record{ID: id, CreatedAt: now, UpdatedAt: now, Fields: copyFields(fields)}, nil
}

// Get loads a record by id.
func (b *GormBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	c, err := b.collection(collection)
	if err != nil {
		return Record{}, err
	}

	row := map[string]interface{}{}
	res := b.db.WithContext(ctx).Model(c.New()).Where("id = ?", id).Take(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) || (res.Error == nil && res.RowsAffected == 0) {
		return Record{}, ErrNotFound
	}
	if res.Error != nil {
		return Record{}, fmt.Errorf("store: get %s/%s: %w", collection, id, res.Error)
	}
	return recordFromRow(row), nil
}

// List runs a filtered, ordered, windowed query. Filters on columns outside the
// collection's index set are rejected with ErrUnsupportedQuery before touching the database.
func (b *GormBackend) List(ctx context.Context, collection string, q Query) (Page, error) {
	c, err := b.collection(collection)
	if err != nil {
		return Page{}, err
	}

	tx := b.db.WithContext(ctx).Model(c.New())
	for _, f := range q.Filters {
		clause, args, err := buildClause(c, f)
		if err != nil {
			return Page{}, err
		}
		tx = tx.Where(clause, args...)
	}
	base := tx.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("store: count %s: %w", collection, err)
	}

	find := base
	if q.OrderBy != "" {
		if !c.orderable(q.OrderBy) {
			return Page{}, fmt.Errorf("%w: cannot order %s by %s", ErrUnsupportedQuery, collection, q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		find = find.Order(q.OrderBy + " " + dir)
	}
	if q.Limit > 0 {
		find = find.Limit(q.Limit)
	}
	if q.Offset > 0 {
		find = find.Offset(q.Offset)
	}

	var rows []map[string]interface{}
	if err := find.Find(&rows).Error; err != nil {
		return Page{}, fmt.Errorf("store: list %s: %w", collection, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return Page{Records: records, Total: total}, nil
}

// Update writes the given fields and returns the stored record.
func (b *GormBackend) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (Record, error) {
	c, err := b.collection(collection)
	if err != nil {
		return Record{}, err
	}

	row := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		if !c.writable(k) {
			return Record{}, fmt.Errorf("store: %s has no field %q", collection, k)
		}
		row[k] = v
	}
	row[FieldUpdatedAt] = time.Now().UTC()

	res := b.db.WithContext(ctx).Model(c.New()).Where("id = ?", id).Updates(row)
	if res.Error != nil {
		return Record{}, fmt.Errorf("store: update %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return Record{}, ErrNotFound
	}
	return b.Get(ctx, collection, id)
}

// Delete removes a record permanently.
func (b *GormBackend) Delete(ctx context.Context, collection, id string) error {
	c, err := b.collection(collection)
	if err != nil {
		return err
	}

	res := b.db.WithContext(ctx).Where("id = ?", id).Delete(c.New())
	if res.Error != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildClause(c Collection, f Filter) (string, []interface{}, error) {
	switch f.Op {
	case OpEqual, OpSearch:
		if !c.queryable(f.Field) {
			return "", nil, fmt.Errorf("%w: field %s is not indexed", ErrUnsupportedQuery, f.Field)
		}
		if f.Op == OpEqual {
			return f.Field + " = ?", []interface{}{f.Value}, nil
		}
		return f.Field + " LIKE ?", []interface{}{"%" + escapeLike(f.Value) + "%"}, nil
	case OpOr:
		if len(f.Any) == 0 {
			return "", nil, fmt.Errorf("%w: empty or()", ErrUnsupportedQuery)
		}
		parts := make([]string, 0, len(f.Any))
		var args []interface{}
		for _, sub := range f.Any {
			if sub.Op == OpOr {
				return "", nil, fmt.Errorf("%w: nested or()", ErrUnsupportedQuery)
			}
			clause, subArgs, err := buildClause(c, sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, clause)
			args = append(args, subArgs...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("%w: unknown operator", ErrUnsupportedQuery)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func recordFromRow(row map[string]interface{}) Record {
	rec := Record{Fields: make(map[string]interface{}, len(row))}
	for k, v := range row {
		switch k {
		case FieldID:
			rec.ID = AsString(v)
		case FieldCreatedAt:
			rec.CreatedAt = AsTime(v)
		case FieldUpdatedAt:
			rec.UpdatedAt = AsTime(v)
		default:
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec.Fields[k] = v
		}
	}
	return rec
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
