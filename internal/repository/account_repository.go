package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/persistence"
)

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

type accountRepository struct {
	db persistence.Queryer
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db persistence.Queryer) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `
        a.id, a.username, a.email, a.password_hash, a.first_name, a.last_name, a.role, a.avatar,
        a.is_staff, a.is_superuser, a.is_active, a.date_joined, a.last_login,
        ARRAY(SELECT g.group_name FROM account_groups g WHERE g.account_id = a.id ORDER BY g.group_name)`

func (r *accountRepository) conn(ctx context.Context) persistence.Queryer {
	return persistence.QueryerFromContext(ctx, r.db)
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, email, password_hash, first_name, last_name, role, avatar, is_staff, is_superuser, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, date_joined`

	err := r.conn(ctx).QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		string(account.Role),
		account.Avatar,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
	).Scan(&account.ID, &account.DateJoined)
	return translatePgError(err)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET username=$1, email=$2, first_name=$3, last_name=$4, role=$5, avatar=$6,
            is_staff=$7, is_superuser=$8, is_active=$9
        WHERE id=$10`

	cmd, err := r.conn(ctx).Exec(ctx, query,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		string(account.Role),
		account.Avatar,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
		account.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	cmd, err := r.conn(ctx).Exec(ctx, `UPDATE accounts SET password_hash=$1 WHERE id=$2`, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE accounts SET last_login=NOW() WHERE id=$1`, id)
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts a WHERE a.id=$1`
	return scanAccount(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts a WHERE a.username=$1`
	return scanAccount(r.conn(ctx).QueryRow(ctx, query, username))
}

// GetByEmail matches the address case-insensitively.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts a WHERE LOWER(a.email)=LOWER($1) AND a.email <> ''`
	return scanAccount(r.conn(ctx).QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *accountRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email)=LOWER($1) AND email <> '' AND id <> $2)`
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, query, strings.TrimSpace(email), excludeID).Scan(&taken)
	return taken, err
}

func (r *accountRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username=$1 AND id <> $2)`
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, query, username, excludeID).Scan(&taken)
	return taken, err
}

// List returns every account, newest first.
func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts a ORDER BY a.date_joined DESC, a.id DESC`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		role    string
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&role,
		&account.Avatar,
		&account.IsStaff,
		&account.IsSuperuser,
		&account.IsActive,
		&account.DateJoined,
		&account.LastLogin,
		&account.Groups,
	); err != nil {
		return nil, err
	}
	account.Role = domain.Role(role)
	return &account, nil
}
