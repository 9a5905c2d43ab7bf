package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlRepo(t *testing.T) (*EntityRepository[widget], sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	db := FromSQL("test", sqlx.NewDb(raw, "postgres"), zerolog.Nop())
	require.False(t, db.IsMemory())
	return NewRepository[widget](db, "widgets"), mock
}

func TestSQLGetByID(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, data FROM widgets WHERE id = $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow(3, []byte(`{"name":"bolt","price":1.5}`)))

	got, err := r.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, widget{ID: 3, Name: "bolt", Price: 1.5}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetByIDNoRows(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectQuery(`SELECT id, data FROM widgets`).WillReturnError(sql.ErrNoRows)

	_, err := r.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDatabase)
}

func TestSQLListWithWhereAndPaging(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	spec := Specification[widget]{Where: `data->>'name' = $1`, Args: []any{"nut"}}.Page(2, 5)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, data FROM widgets WHERE data->>'name' = $1 ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs("nut", 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow(11, []byte(`{"name":"nut"}`)).
			AddRow(12, []byte(`{"name":"nut"}`)))

	got, err := r.List(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 12, got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCountIgnoresPaging(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM widgets WHERE data->>'name' = $1`)).
		WithArgs("nut").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	n, err := r.Count(context.Background(),
		Specification[widget]{Where: `data->>'name' = $1`, Args: []any{"nut"}}.Page(1, 5))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}

func TestSQLAddReturnsID(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO widgets (data) VALUES ($1) RETURNING id`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	got, err := r.Add(context.Background(), widget{Name: "gear"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "gear", got.Name)
}

func TestSQLUpdateMissingRow(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE widgets SET data = $1 WHERE id = $2`)).
		WithArgs(sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, r.Update(context.Background(), widget{ID: 4}), ErrNotFound)
}

func TestSQLDeleteDriverError(t *testing.T) {
	t.Parallel()
	r, mock := sqlRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM widgets WHERE id = $1`)).
		WithArgs(4).
		WillReturnError(sql.ErrConnDone)

	err := r.Delete(context.Background(), widget{ID: 4})
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestMigrateAppliesStatementsInOrder(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stmts, err := Statements()
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "catalog_brands")

	for range stmts {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(".*").WillReturnError(sql.ErrConnDone)

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
}
