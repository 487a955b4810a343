package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ztcp-auth/internal/audit/domain"
)

func TestSave_NullsEmptyFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("e1", (*string)(nil), (*string)(nil), "login_failure", "auth", "10.0.0.1", (*string)(nil), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepository(mock)
	err = repo.Save(context.Background(), &domain.AuditEvent{
		ID: "e1", Action: "login_failure", Resource: "auth", IP: "10.0.0.1", CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByPrincipal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pid, sid := "p1", "s1"
	mock.ExpectQuery("FROM audit_events WHERE principal_id").
		WithArgs("p1", int32(10), int32(0)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "principal_id", "session_id", "action", "resource", "ip", "metadata", "created_at"}).
			AddRow("e2", &pid, &sid, "logout", "auth", "10.0.0.1", (*string)(nil), at).
			AddRow("e1", &pid, (*string)(nil), "login_failure", "auth", "10.0.0.1", (*string)(nil), at.Add(-time.Minute)))

	repo := NewPostgresRepository(mock)
	list, err := repo.ListByPrincipal(context.Background(), "p1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].SessionID)
	assert.Equal(t, "", list[1].SessionID)
	assert.Equal(t, "", list[1].Metadata)
}
