package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/go-csrf/csrf"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := New(db, nil)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func TestStore_Get(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")

	t.Run("found", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
			WithArgs("sess-1", "_csrf").
			WillReturnRows(sqlmock.NewRows([]string{"secret"}).AddRow("stored"))

		v, ok, err := s.Get(ctx, "_csrf")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "stored", v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
			WithArgs("sess-1", "_csrf").
			WillReturnRows(sqlmock.NewRows([]string{"secret"}))

		_, ok, err := s.Get(ctx, "_csrf")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database_error", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
			WithArgs("sess-1", "_csrf").
			WillReturnError(errors.New("connection refused"))

		_, _, err := s.Get(ctx, "_csrf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("no_session", func(t *testing.T) {
		s, mock := newStore(t)
		_, _, err := s.Get(context.Background(), "_csrf")
		assert.ErrorIs(t, err, ErrNoSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_SetAndRemove(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta(setQuery)).
		WithArgs("sess-1", "_csrf", "secret", s.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(removeQuery)).
		WithArgs("sess-1", "_csrf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(ctx, "_csrf", "secret"))
	require.NoError(t, s.Remove(ctx, "_csrf"))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.ErrorIs(t, s.Set(context.Background(), "_csrf", "x"), ErrNoSession)
	assert.ErrorIs(t, s.Remove(context.Background(), "_csrf"), ErrNoSession)
}

func TestStore_SetFailure(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(setQuery)).WillReturnError(errors.New("read-only"))

	err := s.Set(ctx, "_csrf", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlstore: set")
}

func TestStore_MigrateAndDeleteStale(t *testing.T) {
	s, mock := newStore(t)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(Schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(staleQuery)).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, s.Migrate(context.Background()))
	n, err := s.DeleteStale(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BacksToken(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-9")
	s, mock := newStore(t)
	tok := csrf.NewToken(s, nil)

	// first access: nothing stored, a secret gets written
	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("sess-9", csrf.DefaultName).
		WillReturnRows(sqlmock.NewRows([]string{"secret"}))
	mock.ExpectExec(regexp.QuoteMeta(setQuery)).
		WithArgs("sess-9", csrf.DefaultName, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	masked, err := tok.Value(ctx)
	require.NoError(t, err)

	plain, err := csrf.OneTimePad{}.RemoveMask(masked)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("sess-9", csrf.DefaultName).
		WillReturnRows(sqlmock.NewRows([]string{"secret"}).AddRow(plain))

	ok, err := tok.Equals(ctx, masked)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomSessionIDFunc(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, func(context.Context) (string, bool) { return "fixed", true })
	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("fixed", "_csrf").
		WillReturnRows(sqlmock.NewRows([]string{"secret"}))

	_, ok, err := s.Get(context.Background(), "_csrf")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
