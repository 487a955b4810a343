package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ztcp-auth/internal/refreshtoken/domain"
)

var tokenCols = []string{"id", "principal_id", "session_id", "token_hash", "expires_at", "user_agent", "created_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestPostgres_CreateAndGetByHash(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := &domain.RefreshToken{
		ID: "rt1", PrincipalID: "p1", SessionID: "s1", TokenHash: "abc",
		ExpiresAt: now.Add(7 * 24 * time.Hour), CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("rt1", "p1", "s1", "abc", tok.ExpiresAt, (*string)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(tokenCols).
			AddRow("rt1", "p1", "s1", "abc", tok.ExpiresAt, (*string)(nil), now))

	require.NoError(t, repo.Create(context.Background(), tok))
	got, err := repo.GetByHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, tok, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByHashMissing(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").WithArgs("x").WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByHash(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgres_DeleteByHashReportsRowCount(t *testing.T) {
	mock, repo := newMock(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	results := make([]bool, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.DeleteByHash(context.Background(), "abc")
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()
	assert.ElementsMatch(t, []bool{true, false}, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BulkDeletes(t *testing.T) {
	mock, repo := newMock(t)
	before := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("WHERE session_id").WithArgs("s1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("WHERE principal_id").WithArgs("p1").WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec("WHERE expires_at").WithArgs(before).WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := repo.DeleteBySession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.DeleteByPrincipal(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	n, err = repo.DeleteExpired(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteExpiredError(t *testing.T) {
	mock, repo := newMock(t)
	boom := errors.New("boom")
	mock.ExpectExec("WHERE expires_at").WithArgs(pgxmock.AnyArg()).WillReturnError(boom)

	_, err := repo.DeleteExpired(context.Background(), time.Now())
	assert.ErrorIs(t, err, boom)
}
