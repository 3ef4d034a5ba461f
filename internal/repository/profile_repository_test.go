package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hr-service/internal/domain"
)

var profileColumnNames = []string{
	"id", "account_id", "department_id", "position", "hire_date", "id_number", "date_of_birth",
	"gender", "phone", "physical_address", "payroll_number", "updated_on",
}

func TestProfileRepository_GetOrCreateExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	position := "Analyst"
	dept := int64(3)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_profiles (account_id)")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_profiles WHERE account_id=$1")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(profileColumnNames).
			AddRow(int64(1), int64(9), &dept, &position, nil, nil, nil, nil, nil, nil, nil, nil))

	repo := NewProfileRepository(mock)
	profile, created, err := repo.GetOrCreate(context.Background(), 9)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, int64(1), profile.ID)
	assert.Equal(t, "Analyst", profile.PositionOrEmpty())
	require.NotNil(t, profile.DepartmentID)
	assert.Equal(t, int64(3), *profile.DepartmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetOrCreateInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_profiles (account_id)")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_profiles WHERE account_id=$1")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(profileColumnNames).
			AddRow(int64(2), int64(9), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil))

	repo := NewProfileRepository(mock)
	profile, created, err := repo.GetOrCreate(context.Background(), 9)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Nil(t, profile.DepartmentRef())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_UpdateWritesNulls(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	gender := "Female"
	profile := &domain.EmployeeProfile{ID: 2, AccountID: 9, Gender: &gender, UpdatedOn: &now}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employee_profiles")).
		WithArgs((*int64)(nil), (*string)(nil), (*time.Time)(nil), (*string)(nil), (*time.Time)(nil),
			&gender, (*string)(nil), (*string)(nil), (*string)(nil), &now, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewProfileRepository(mock)
	require.NoError(t, repo.Update(context.Background(), profile))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_ListByAccountIDsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProfileRepository(mock)
	got, err := repo.ListByAccountIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
