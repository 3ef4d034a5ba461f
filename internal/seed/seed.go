// Package seed loads reference data (departments and a bootstrap admin) from YAML.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/repository"
)

// File is the seed document.
type File struct {
	Departments []Department `yaml:"departments"`
	Admin       *Admin       `yaml:"admin"`
}

// Department is one seeded department.
type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Admin is the bootstrap superuser.
type Admin struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a seed document, rejecting unknown keys.
func Parse(raw []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, d := range f.Departments {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("department %d has no name", i)
		}
	}
	if f.Admin != nil {
		if f.Admin.Username == "" || f.Admin.Password == "" {
			return nil, errors.New("admin needs username and password")
		}
		if len(f.Admin.Password) < auth.MinPasswordLength {
			return nil, fmt.Errorf("admin password must have at least %d characters", auth.MinPasswordLength)
		}
	}
	return &f, nil
}

// Seeder writes a seed document through the stores.
type Seeder struct {
	Accounts    repository.AccountRepository
	Departments repository.DepartmentRepository
	BcryptCost  int
	Logger      *zap.Logger
}

// Result counts what Apply changed.
type Result struct {
	DepartmentsCreated int
	DepartmentsUpdated int
	AdminCreated       bool
}

// Apply is idempotent: departments are matched by name and the admin by username.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &Result{}

	existing, err := s.Departments.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.Department, len(existing))
	for _, d := range existing {
		byName[strings.ToLower(d.Name)] = d
	}
	for _, want := range f.Departments {
		name := strings.TrimSpace(want.Name)
		if current, ok := byName[strings.ToLower(name)]; ok {
			if current.Description == want.Description {
				continue
			}
			current.Description = want.Description
			if err := s.Departments.Update(ctx, &current); err != nil {
				return nil, fmt.Errorf("update department %q: %w", name, err)
			}
			res.DepartmentsUpdated++
			continue
		}
		dept := &domain.Department{Name: name, Description: want.Description}
		if err := s.Departments.Create(ctx, dept); err != nil {
			return nil, fmt.Errorf("create department %q: %w", name, err)
		}
		byName[strings.ToLower(name)] = *dept
		res.DepartmentsCreated++
		logger.Info("department seeded", zap.String("name", name), zap.Int64("id", dept.ID))
	}

	if f.Admin != nil {
		created, err := s.applyAdmin(ctx, f.Admin)
		if err != nil {
			return nil, err
		}
		res.AdminCreated = created
		logger.Info("admin seeded", zap.String("username", f.Admin.Username), zap.Bool("created", created))
	}
	return res, nil
}

func (s *Seeder) applyAdmin(ctx context.Context, a *Admin) (bool, error) {
	hash, err := auth.HashPassword(a.Password, s.BcryptCost)
	if err != nil {
		return false, err
	}

	account, err := s.Accounts.GetByUsername(ctx, a.Username)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		account = &domain.Account{
			Username:     a.Username,
			Email:        strings.ToLower(strings.TrimSpace(a.Email)),
			PasswordHash: hash,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			Role:         domain.RoleAdmin,
			IsStaff:      true,
			IsSuperuser:  true,
			IsActive:     true,
		}
		if err := s.Accounts.Create(ctx, account); err != nil {
			return false, fmt.Errorf("create admin: %w", err)
		}
		return true, nil
	case err != nil:
		return false, err
	}

	account.Role = domain.RoleAdmin
	account.IsStaff = true
	account.IsSuperuser = true
	account.IsActive = true
	if err := s.Accounts.Update(ctx, account); err != nil {
		return false, fmt.Errorf("update admin: %w", err)
	}
	if err := s.Accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return false, fmt.Errorf("reset admin password: %w", err)
	}
	return false, nil
}
