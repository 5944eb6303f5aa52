package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/outing-coordinator/internal/model"
)

var outingCols = []string{"id", "title", "activity_type", "date_time", "location", "outing_mode", "host_user_id", "is_closed", "created_at"}

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *OutingRepo, func() *InterestRequestRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock,
		func() *OutingRepo { return NewOutingRepo(db) },
		func() *InterestRequestRepo { return NewInterestRequestRepo(db) }
}

func TestOutingRepoCreate(t *testing.T) {
	mock, outings, _ := newMock(t)
	loc := "Blue Bottle"
	o := &model.Outing{
		ID: "o-1", Title: "Coffee", ActivityType: "coffee", DateTime: "2026-10-20T09:00",
		Location: &loc, OutingMode: model.OutingModeInPerson, HostUserID: "host",
		CreatedAt: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outings")).
		WithArgs("o-1", "Coffee", "coffee", "2026-10-20T09:00", "Blue Bottle", "in_person", "host", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, outings().Create(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutingRepoGetByIDNotFound(t *testing.T) {
	mock, outings, _ := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM outings WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(outingCols))

	_, err := outings().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOutingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutingRepoListAllScansNullableLocation(t *testing.T) {
	mock, outings, _ := newMock(t)
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WillReturnRows(sqlmock.NewRows(outingCols).
			AddRow("o-2", "Hike", "hike", "sat", "Trailhead", "in_person", "h2", int64(1), now).
			AddRow("o-1", "Coffee", "coffee", "fri", nil, "in_person", "h1", int64(0), now.Add(-time.Hour)))

	got, err := outings().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsClosed)
	require.NotNil(t, got[0].Location)
	assert.Equal(t, "Trailhead", *got[0].Location)
	assert.False(t, got[1].IsClosed)
	assert.Nil(t, got[1].Location)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutingRepoMarkClosedIgnoresZeroAffected(t *testing.T) {
	mock, outings, _ := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outings SET is_closed = 1 WHERE id = ?")).
		WithArgs("o-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, outings().MarkClosed(context.Background(), "o-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
