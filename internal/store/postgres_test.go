package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_AssignLead_Won(t *testing.T) {
	st, mock := newMockStore(t)

	emp := model.Employee{Email: "anna@example.com", FullName: "Anna Albers", CalendarLink: "https://cal.example/anna"}
	mock.ExpectExec(`UPDATE leads`).
		WithArgs("assigned", "Anna Albers", "anna@example.com", "https://cal.example/anna", "lead-1", "in_pool").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := st.AssignLead(context.Background(), "lead-1", emp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AssignLead_Lost(t *testing.T) {
	st, mock := newMockStore(t)

	// Zero rows matched: another distributor already holds the lead.
	mock.ExpectExec(`UPDATE leads`).
		WithArgs("assigned", "Bert Braun", "bert@example.com", "", "lead-1", "in_pool").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := st.AssignLead(context.Background(), "lead-1", model.Employee{Email: "bert@example.com", FullName: "Bert Braun"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateLead_RenumbersPlaceholders(t *testing.T) {
	st, mock := newMockStore(t)

	status := model.LeadStatusContacted
	areaID := "area-1"

	mock.ExpectExec(`UPDATE leads SET status = \$1, area_id = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("contacted", "area-1", pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := st.UpdateLead(context.Background(), "lead-1", LeadPatch{Status: &status, AreaID: &areaID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateLead_MissingRow(t *testing.T) {
	st, mock := newMockStore(t)

	status := model.LeadStatusContacted
	mock.ExpectExec(`UPDATE leads`).
		WithArgs("contacted", pgxmock.AnyArg(), "no-such-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateLead(context.Background(), "no-such-id", LeadPatch{Status: &status})
	assert.Error(t, err)
}

func TestPostgres_GetGeocodeEntry_Miss(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT street, house_number, postal_code, city, lat, lon`).
		WithArgs("Hauptstraße", "12", "Berlin").
		WillReturnRows(pgxmock.NewRows([]string{"street", "house_number", "postal_code", "city", "lat", "lon"}))

	got, err := st.GetGeocodeEntry(context.Background(), "Hauptstraße", "12", "Berlin")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
