package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/persistence"
)

// ProfileRepository persists employee profiles.
type ProfileRepository interface {
	GetByAccountID(ctx context.Context, accountID int64) (*domain.EmployeeProfile, error)
	// GetOrCreate returns the account's profile, inserting an empty one first if needed.
	GetOrCreate(ctx context.Context, accountID int64) (*domain.EmployeeProfile, bool, error)
	Update(ctx context.Context, profile *domain.EmployeeProfile) error
	ListByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]*domain.EmployeeProfile, error)
}

type profileRepository struct {
	db persistence.Queryer
}

// NewProfileRepository constructs repository.
func NewProfileRepository(db persistence.Queryer) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `
        id, account_id, department_id, position, hire_date, id_number, date_of_birth,
        gender, phone, physical_address, payroll_number, updated_on`

func (r *profileRepository) conn(ctx context.Context) persistence.Queryer {
	return persistence.QueryerFromContext(ctx, r.db)
}

func (r *profileRepository) GetByAccountID(ctx context.Context, accountID int64) (*domain.EmployeeProfile, error) {
	query := `SELECT` + profileColumns + ` FROM employee_profiles WHERE account_id=$1`
	return scanProfile(r.conn(ctx).QueryRow(ctx, query, accountID))
}

func (r *profileRepository) GetOrCreate(ctx context.Context, accountID int64) (*domain.EmployeeProfile, bool, error) {
	const insert = `
        INSERT INTO employee_profiles (account_id) VALUES ($1)
        ON CONFLICT (account_id) DO NOTHING
        RETURNING id`

	created := true
	var id int64
	if err := r.conn(ctx).QueryRow(ctx, insert, accountID).Scan(&id); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, translatePgError(err)
		}
		created = false
	}

	profile, err := r.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	return profile, created, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.EmployeeProfile) error {
	const query = `
        UPDATE employee_profiles
        SET department_id=$1, position=$2, hire_date=$3, id_number=$4, date_of_birth=$5,
            gender=$6, phone=$7, physical_address=$8, payroll_number=$9, updated_on=$10
        WHERE id=$11`

	cmd, err := r.conn(ctx).Exec(ctx, query,
		profile.DepartmentID,
		profile.Position,
		profile.HireDate,
		profile.IDNumber,
		profile.DateOfBirth,
		profile.Gender,
		profile.Phone,
		profile.PhysicalAddress,
		profile.PayrollNumber,
		profile.UpdatedOn,
		profile.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) ListByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]*domain.EmployeeProfile, error) {
	result := make(map[int64]*domain.EmployeeProfile, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}

	query := `SELECT` + profileColumns + ` FROM employee_profiles WHERE account_id = ANY($1)`
	rows, err := r.conn(ctx).Query(ctx, query, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result[profile.AccountID] = profile
	}
	return result, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.EmployeeProfile, error) {
	var p domain.EmployeeProfile
	if err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.DepartmentID,
		&p.Position,
		&p.HireDate,
		&p.IDNumber,
		&p.DateOfBirth,
		&p.Gender,
		&p.Phone,
		&p.PhysicalAddress,
		&p.PayrollNumber,
		&p.UpdatedOn,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
