// Package testutil provides in-memory stand-ins for the Postgres, Redis and
// filesystem collaborators so services and handlers can be tested without them.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/repository"
)

// DB is an in-memory relational store mirroring the Postgres schema constraints.
type DB struct {
	mu          sync.Mutex
	nextID      int64
	accounts    map[int64]domain.Account
	profiles    map[int64]domain.EmployeeProfile
	departments map[int64]domain.Department
	clock       time.Time
}

type snapshot struct {
	nextID      int64
	accounts    map[int64]domain.Account
	profiles    map[int64]domain.EmployeeProfile
	departments map[int64]domain.Department
}

// NewDB returns an empty store.
func NewDB() *DB {
	return &DB{
		accounts:    map[int64]domain.Account{},
		profiles:    map[int64]domain.EmployeeProfile{},
		departments: map[int64]domain.Department{},
		clock:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// WithinReadOnly runs fn directly.
func (db *DB) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// WithinReadWrite restores the previous state when fn fails.
func (db *DB) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	db.mu.Lock()
	saved := db.snapshot()
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.nextID = saved.nextID
		db.accounts = saved.accounts
		db.profiles = saved.profiles
		db.departments = saved.departments
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		nextID:      db.nextID,
		accounts:    make(map[int64]domain.Account, len(db.accounts)),
		profiles:    make(map[int64]domain.EmployeeProfile, len(db.profiles)),
		departments: make(map[int64]domain.Department, len(db.departments)),
	}
	for k, v := range db.accounts {
		s.accounts[k] = v
	}
	for k, v := range db.profiles {
		s.profiles[k] = v
	}
	for k, v := range db.departments {
		s.departments[k] = v
	}
	return s
}

func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

// tick returns a strictly increasing timestamp so ordering by date_joined is stable.
func (db *DB) tick() time.Time {
	db.clock = db.clock.Add(time.Minute)
	return db.clock
}

// AddAccount inserts an account directly and returns the stored copy.
func (db *DB) AddAccount(a domain.Account) *domain.Account {
	db.mu.Lock()
	defer db.mu.Unlock()
	a.ID = db.id()
	if a.DateJoined.IsZero() {
		a.DateJoined = db.tick()
	}
	db.accounts[a.ID] = a
	return cloneAccount(a)
}

// AddDepartment inserts a department directly.
func (db *DB) AddDepartment(name string) domain.Department {
	db.mu.Lock()
	defer db.mu.Unlock()
	d := domain.Department{ID: db.id(), Name: name}
	db.departments[d.ID] = d
	return d
}

// PutProfile stores a profile for its account, replacing any existing one.
func (db *DB) PutProfile(p domain.EmployeeProfile) *domain.EmployeeProfile {
	db.mu.Lock()
	defer db.mu.Unlock()
	if existing, ok := db.profiles[p.AccountID]; ok {
		p.ID = existing.ID
	} else {
		p.ID = db.id()
	}
	db.profiles[p.AccountID] = p
	out := p
	return &out
}

// Account returns the stored account.
func (db *DB) Account(id int64) (*domain.Account, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return nil, false
	}
	return cloneAccount(a), true
}

// Profile returns the stored profile for an account.
func (db *DB) Profile(accountID int64) (*domain.EmployeeProfile, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.profiles[accountID]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Accounts exposes the account table.
func (db *DB) Accounts() repository.AccountRepository { return &accountRepo{db: db} }

// Profiles exposes the profile table.
func (db *DB) Profiles() repository.ProfileRepository { return &profileRepo{db: db} }

// Departments exposes the department table.
func (db *DB) Departments() repository.DepartmentRepository { return &departmentRepo{db: db} }

func cloneAccount(a domain.Account) *domain.Account {
	a.Groups = append([]string(nil), a.Groups...)
	return &a
}

type accountRepo struct{ db *DB }

func (r *accountRepo) checkUnique(a *domain.Account) error {
	for id, other := range r.db.accounts {
		if id == a.ID {
			continue
		}
		if other.Username == a.Username {
			return &repository.DuplicateError{Field: "username"}
		}
		if a.Email != "" && strings.EqualFold(other.Email, a.Email) {
			return &repository.DuplicateError{Field: "email"}
		}
	}
	return nil
}

func (r *accountRepo) Create(_ context.Context, a *domain.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.checkUnique(a); err != nil {
		return err
	}
	a.ID = r.db.id()
	a.DateJoined = r.db.tick()
	r.db.accounts[a.ID] = *cloneAccount(*a)
	return nil
}

func (r *accountRepo) Update(_ context.Context, a *domain.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.accounts[a.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkUnique(a); err != nil {
		return err
	}
	updated := *cloneAccount(*a)
	updated.PasswordHash = stored.PasswordHash
	updated.Groups = stored.Groups
	updated.DateJoined = stored.DateJoined
	updated.LastLogin = stored.LastLogin
	r.db.accounts[a.ID] = updated
	return nil
}

func (r *accountRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.PasswordHash = hash
	r.db.accounts[id] = a
	return nil
}

func (r *accountRepo) TouchLastLogin(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := r.db.tick()
	a.LastLogin = &now
	r.db.accounts[id] = a
	return nil
}

func (r *accountRepo) find(match func(domain.Account) bool) (*domain.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.accounts {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.ID == id })
}

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.Username == username })
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	return r.find(func(a domain.Account) bool { return a.Email != "" && strings.EqualFold(a.Email, email) })
}

func (r *accountRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	a, err := r.GetByEmail(ctx, email)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil && a.ID != excludeID, err
}

func (r *accountRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	a, err := r.GetByUsername(ctx, username)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil && a.ID != excludeID, err
}

func (r *accountRepo) List(_ context.Context) ([]domain.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Account, 0, len(r.db.accounts))
	for _, a := range r.db.accounts {
		out = append(out, *cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateJoined.Equal(out[j].DateJoined) {
			return out[i].ID > out[j].ID
		}
		return out[i].DateJoined.After(out[j].DateJoined)
	})
	return out, nil
}

func (r *accountRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.db.accounts, id)
	delete(r.db.profiles, id)
	return nil
}

func (r *accountRepo) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.db.accounts[id]; ok {
			delete(r.db.accounts, id)
			delete(r.db.profiles, id)
			n++
		}
	}
	return n, nil
}

type profileRepo struct{ db *DB }

func (r *profileRepo) GetByAccountID(_ context.Context, accountID int64) (*domain.EmployeeProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *profileRepo) GetOrCreate(_ context.Context, accountID int64) (*domain.EmployeeProfile, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.profiles[accountID]; ok {
		return &p, false, nil
	}
	if _, ok := r.db.accounts[accountID]; !ok {
		return nil, false, repository.ErrMissingReference
	}
	p := domain.EmployeeProfile{ID: r.db.id(), AccountID: accountID}
	r.db.profiles[accountID] = p
	return &p, true, nil
}

func (r *profileRepo) Update(_ context.Context, p *domain.EmployeeProfile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.profiles[p.AccountID]; !ok {
		return pgx.ErrNoRows
	}
	if p.DepartmentID != nil {
		if _, ok := r.db.departments[*p.DepartmentID]; !ok {
			return repository.ErrMissingReference
		}
	}
	r.db.profiles[p.AccountID] = *p
	return nil
}

func (r *profileRepo) ListByAccountIDs(_ context.Context, ids []int64) (map[int64]*domain.EmployeeProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]*domain.EmployeeProfile, len(ids))
	for _, id := range ids {
		if p, ok := r.db.profiles[id]; ok {
			p := p
			out[id] = &p
		}
	}
	return out, nil
}

type departmentRepo struct{ db *DB }

func (r *departmentRepo) checkUnique(d *domain.Department) error {
	for id, other := range r.db.departments {
		if id != d.ID && other.Name == d.Name {
			return &repository.DuplicateError{Field: "name"}
		}
	}
	return nil
}

func (r *departmentRepo) Create(_ context.Context, d *domain.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.checkUnique(d); err != nil {
		return err
	}
	d.ID = r.db.id()
	r.db.departments[d.ID] = *d
	return nil
}

func (r *departmentRepo) Update(_ context.Context, d *domain.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.departments[d.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkUnique(d); err != nil {
		return err
	}
	r.db.departments[d.ID] = *d
	return nil
}

func (r *departmentRepo) GetByID(_ context.Context, id int64) (*domain.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &d, nil
}

func (r *departmentRepo) List(_ context.Context) ([]domain.Department, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Department, 0, len(r.db.departments))
	for _, d := range r.db.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *departmentRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.departments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.db.departments, id)
	for accountID, p := range r.db.profiles {
		if p.DepartmentID != nil && *p.DepartmentID == id {
			p.DepartmentID = nil
			r.db.profiles[accountID] = p
		}
	}
	return nil
}
