package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"renolead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractorColumnNames = []string{
	"id", "name", "email", "phone", "subscription_tier", "is_active_subscriber",
	"serves_all_zipcodes", "leads_received", "leads_converted", "conversion_rate",
	"zip_codes", "created_at", "updated_at",
}

var created = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

func contractorRow(mock pgxmock.PgxPoolIface, id uuid.UUID, name string, rate float64, zips []string) *pgxmock.Rows {
	return mock.NewRows(contractorColumnNames).AddRow(
		id, name, "office@"+name+".test", nil, "pro", true,
		false, 10, 3, rate,
		zips, created, created,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateInsertsContractorAndZipCodes(t *testing.T) {
	mock := newMock(t)
	c := Contractor{
		ID:                 uuid.New(),
		Name:               "Keystone Renovations",
		Email:              "jobs@keystone.test",
		SubscriptionTier:   "basic",
		IsActiveSubscriber: true,
		ZipCodes:           []string{"01742", "01776"},
		CreatedAt:          created,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contractors").
		WithArgs(c.ID, c.Name, c.Email, c.Phone, c.SubscriptionTier, true, false, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, zip := range c.ZipCodes {
		mock.ExpectExec("INSERT INTO contractor_zip_codes").
			WithArgs(c.ID, zip).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	got, err := New(mock).Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, created, got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmailIsConflict(t *testing.T) {
	mock := newMock(t)
	c := Contractor{ID: uuid.New(), Name: "Dup", Email: "dup@example.com", SubscriptionTier: "basic", CreatedAt: created}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contractors").
		WithArgs(c.ID, c.Name, c.Email, c.Phone, c.SubscriptionTier, false, false, created).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectRollback()

	_, err := New(mock).Create(context.Background(), c)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDScansZipCodes(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("FROM contractors c WHERE c.id = \\$1").
		WithArgs(id).
		WillReturnRows(contractorRow(mock, id, "keystone", 30, []string{"01742", "01776"}))

	c, err := New(mock).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"01742", "01776"}, c.ZipCodes)
	assert.Equal(t, 30.0, c.ConversionRate)
	assert.Equal(t, 10, c.LeadsReceived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("FROM contractors c WHERE c.id = \\$1").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).GetByID(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetByEmailStoreFailure(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("lower\\(c.email\\) = lower\\(\\$1\\)").
		WithArgs("ops@acme.test").
		WillReturnError(errors.New("connection reset"))

	_, err := New(mock).GetByEmail(context.Background(), "ops@acme.test")
	assert.True(t, apperr.Is(err, apperr.KindStore))
}

func TestGetByIDsSkipsQueryForEmptyInput(t *testing.T) {
	mock := newMock(t)
	got, err := New(mock).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleOrdersByConversionRate(t *testing.T) {
	mock := newMock(t)
	best, other := uuid.New(), uuid.New()

	rows := contractorRow(mock, best, "best", 45, []string{"01776"})
	rows.AddRow(other, "other", "office@other.test", nil, "basic", true, true, 4, 1, 25.0, []string{}, created, created)

	mock.ExpectQuery("is_active_subscriber(.|\\n)+ORDER BY c.conversion_rate DESC").
		WithArgs("01776", 3).
		WillReturnRows(rows)

	got, err := New(mock).FindEligible(context.Background(), "01776", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, best, got[0].ID)
	assert.True(t, got[1].ServesAllZipCodes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithSearchAndPaging(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM contractors c WHERE TRUE AND \\(c.name ILIKE \\$1").
		WithArgs("%key%").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery("ORDER BY c.name ASC LIMIT \\$2 OFFSET \\$3").
		WithArgs("%key%", 20, 20).
		WillReturnRows(contractorRow(mock, id, "keystone", 0, nil))

	items, total, err := New(mock).List(context.Background(), ListParams{Search: " key ", Offset: 20, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceZipCodesRollsBackOnFailure(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contractor_zip_codes").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO contractor_zip_codes").
		WithArgs(id, "01742").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := New(mock).ReplaceZipCodes(context.Background(), id, []string{"01742", "01776"})
	assert.True(t, apperr.Is(err, apperr.KindStore))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementLeadsReceived(t *testing.T) {
	mock := newMock(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec("leads_received = leads_received \\+ 1").
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, New(mock).IncrementLeadsReceived(context.Background(), ids))
	require.NoError(t, New(mock).IncrementLeadsReceived(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordConversionUnknownContractor(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("leads_converted = leads_converted \\+ 1").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := New(mock).RecordConversion(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
