package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string
	Phone     string
	Status    string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (testRow) TableName() string { return "test_rows" }

func newMockBackend(t *testing.T) (*GormBackend, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	backend := NewGormBackend(db, map[string]Collection{
		"rows": {
			New:     func() interface{} { return &testRow{} },
			Fields:  []string{"name", "phone", "status", "notes"},
			Indexed: []string{"name", "phone", "status"},
		},
	})
	return backend, mock
}

func TestGormBackendCreateAssignsIDAndTimestamps(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `test_rows`")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := backend.Create(context.Background(), "rows", map[string]interface{}{"name": "Asha", "status": "Pending"})
	require.NoError(t, err)

	assert.Len(t, rec.ID, 36)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Equal(t, "Asha", rec.String("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendCreateRejectsUnknownField(t *testing.T) {
	backend, mock := newMockBackend(t)

	_, err := backend.Create(context.Background(), "rows", map[string]interface{}{"ssn": "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ssn"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendUnknownCollection(t *testing.T) {
	backend, _ := newMockBackend(t)

	_, err := backend.Get(context.Background(), "nope", "1")
	assert.True(t, errors.Is(err, ErrUnknownCollection))
}

func TestGormBackendGet(t *testing.T) {
	backend, mock := newMockBackend(t)
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `test_rows` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "created_at", "updated_at"}).
			AddRow("row-1", "Asha", "9876543210", created, created))

	rec, err := backend.Get(context.Background(), "rows", "row-1")
	require.NoError(t, err)
	assert.Equal(t, "row-1", rec.ID)
	assert.Equal(t, "9876543210", rec.String("phone"))
	assert.Equal(t, created, rec.CreatedAt)
	_, hasID := rec.Fields["id"]
	assert.False(t, hasID)
}

func TestGormBackendGetNotFound(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `test_rows` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := backend.Get(context.Background(), "rows", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormBackendListCountsThenPages(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `test_rows` WHERE status = ?")).
		WithArgs("Cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `test_rows` WHERE status = ?") + ".*" + regexp.QuoteMeta("ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow("a", "Asha", "Cancelled").
			AddRow("b", "Bina", "Cancelled"))

	page, err := backend.List(context.Background(), "rows", Query{
		Filters: []Filter{Equal("status", "Cancelled")},
		OrderBy: FieldCreatedAt,
		Desc:    true,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "a", page.Records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendListOrCombinesSearches(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectQuery(regexp.QuoteMeta("name LIKE ? OR phone LIKE ?")).
		WithArgs("%98765%", "%98765%").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("name LIKE ? OR phone LIKE ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	page, err := backend.List(context.Background(), "rows", Query{
		Filters: []Filter{Or(Search("name", "98765"), Search("phone", "98765"))},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendListRejectsUnindexedField(t *testing.T) {
	backend, mock := newMockBackend(t)

	_, err := backend.List(context.Background(), "rows", Query{Filters: []Filter{Equal("notes", "x")}})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = backend.List(context.Background(), "rows", Query{Filters: []Filter{Or(Equal("name", "a"), Or(Equal("phone", "1")))}})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendUpdateMissingRow(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `test_rows` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := backend.Update(context.Background(), "rows", "gone", map[string]interface{}{"status": "Confirmed"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBackendDelete(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `test_rows` WHERE id = ?")).
		WithArgs("row-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `test_rows` WHERE id = ?")).
		WithArgs("row-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, backend.Delete(context.Background(), "rows", "row-1"))
	assert.ErrorIs(t, backend.Delete(context.Background(), "rows", "row-1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestAsStringAndAsTime(t *testing.T) {
	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "abc", AsString([]byte("abc")))
	assert.Equal(t, "42", AsString(42))

	want := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, want, AsTime("2026-10-17 08:30:00"))
	assert.Equal(t, want, AsTime(want))
	assert.True(t, AsTime("garbage").IsZero())
}
