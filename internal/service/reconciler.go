package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/observability"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/storage"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// Value is one submitted field. Null marks an explicit JSON null; otherwise Text
// holds the value as submitted (numbers and booleans in their literal form).
type Value struct {
	Text string
	Null bool
}

// Str is a convenience constructor for a non-null value.
func Str(s string) Value { return Value{Text: s} }

// Null is an explicit null.
var Null = Value{Null: true}

// Payload is a flattened account and profile update. Keys absent from Fields
// are left untouched.
type Payload struct {
	Fields map[string]Value
	Avatar *storage.AvatarUpload
}

// KeySet names the account fields a caller may change.
type KeySet map[string]struct{}

func newKeySet(keys ...string) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (k KeySet) has(key string) bool {
	_, ok := k[key]
	return ok
}

var (
	// AdminKeySet is used when an admin edits any account.
	AdminKeySet = newKeySet("username", "email", "first_name", "last_name", "role", "is_active")
	// SelfKeySet is used when employees edit themselves.
	SelfKeySet = newKeySet("username", "email", "first_name", "last_name")

	profileKeys = newKeySet("position", "hire_date", "department", "id_number", "date_of_birth",
		"gender", "phone", "physical_address", "payroll_number")
)

const (
	keyAvatar           = "avatar"
	keyRemoveAvatar     = "remove_avatar"
	keyRemoveDepartment = "remove_department"
	keyUpdatedOn        = "updated_on"
	keyDepartment       = "department"
	dateLayout          = "2006-01-02"
)

// Reconciler merges a flattened payload into an account and its employee profile.
type Reconciler struct {
	accounts    repository.AccountRepository
	profiles    repository.ProfileRepository
	departments repository.DepartmentRepository
	avatars     storage.AvatarStore
	tx          TransactionManager
	views       viewLoader
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// ReconcilerDependencies encapsulates collaborators of the reconciler.
type ReconcilerDependencies struct {
	AccountRepo    repository.AccountRepository
	ProfileRepo    repository.ProfileRepository
	DepartmentRepo repository.DepartmentRepository
	Avatars        storage.AvatarStore
	Tx             TransactionManager
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewReconciler constructs the reconciler.
func NewReconciler(deps ReconcilerDependencies) *Reconciler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		accounts:    deps.AccountRepo,
		profiles:    deps.ProfileRepo,
		departments: deps.DepartmentRepo,
		avatars:     deps.Avatars,
		tx:          txOrNoop(deps.Tx),
		views:       viewLoader{profiles: deps.ProfileRepo, departments: deps.DepartmentRepo},
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

type updatePlan struct {
	account          map[string]Value
	profile          map[string]Value
	directive        bool
	removeAvatar     bool
	removeDepartment bool
}

func (p *updatePlan) touchesProfile() bool {
	return len(p.profile) > 0 || p.directive
}

func (p *updatePlan) accountFields() []string {
	out := make([]string, 0, len(p.account))
	for k := range p.account {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Apply updates account accountID from payload on behalf of actor. Account and
// profile changes commit together or not at all.
func (r *Reconciler) Apply(ctx context.Context, actor *domain.Account, accountID int64, keys KeySet, payload Payload) (*AccountView, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.Apply", trace.WithAttributes(attribute.Int64("account.id", accountID)))
	defer span.End()

	plan, err := planUpdate(payload, keys)
	if err != nil {
		r.metrics.RecordAccountUpdate("invalid")
		return nil, err
	}

	var uploaded string
	if payload.Avatar != nil {
		uploaded, err = saveAvatar(ctx, r.avatars, *payload.Avatar)
		if err != nil {
			r.metrics.RecordAccountUpdate("invalid")
			return nil, err
		}
	}

	var (
		view  *AccountView
		stale string
	)
	err = r.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		account, err := r.accounts.GetByID(ctx, accountID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": accountID})
		}
		if err != nil {
			return err
		}

		dirty, err := r.applyAccount(ctx, account, plan.account)
		if err != nil {
			return err
		}
		switch {
		case uploaded != "":
			stale = account.AvatarPath()
			account.Avatar = &uploaded
			dirty = true
		case plan.removeAvatar && account.Avatar != nil:
			stale = account.AvatarPath()
			account.Avatar = nil
			dirty = true
		}
		if dirty {
			if err := r.accounts.Update(ctx, account); err != nil {
				return duplicateAsValidation(err)
			}
		}

		if !plan.touchesProfile() {
			view, err = r.views.load(ctx, account)
			return err
		}

		profile, _, err := r.profiles.GetOrCreate(ctx, account.ID)
		if err != nil {
			return err
		}
		dept, err := r.applyProfile(ctx, profile, plan)
		if err != nil {
			return err
		}
		updated := r.now().UTC()
		profile.UpdatedOn = &updated
		if err := r.profiles.Update(ctx, profile); err != nil {
			if errors.Is(err, repository.ErrMissingReference) {
				return apperrors.NewNotFound("department", map[string]any{"department": profile.DepartmentRef()})
			}
			return err
		}
		view = &AccountView{Account: account, Profile: profile, Department: dept}
		return nil
	})
	if err != nil {
		removeAvatarQuietly(ctx, r.avatars, r.logger, uploaded)
		r.metrics.RecordAccountUpdate("rejected")
		return nil, err
	}
	if stale != uploaded {
		removeAvatarQuietly(ctx, r.avatars, r.logger, stale)
	}

	if len(plan.account) > 0 || uploaded != "" || stale != "" {
		publish(ctx, r.dispatcher, r.logger, events.Event{
			Type:      events.EventAccountUpdated,
			SubjectID: accountID,
			Actor:     actorOf(actor),
			Payload:   events.AccountChangedPayload{Fields: plan.accountFields()},
		})
	}
	if plan.touchesProfile() {
		publish(ctx, r.dispatcher, r.logger, events.Event{
			Type:      events.EventProfileUpdated,
			SubjectID: accountID,
			Actor:     actorOf(actor),
		})
	}
	r.metrics.RecordAccountUpdate("applied")
	return view, nil
}

// planUpdate sorts payload keys into account fields, profile fields and directives.
func planUpdate(payload Payload, keys KeySet) (*updatePlan, error) {
	plan := &updatePlan{account: map[string]Value{}, profile: map[string]Value{}}
	errs := apperrors.FieldErrors{}

	for key, val := range payload.Fields {
		switch {
		case key == keyUpdatedOn:
		case key == keyRemoveAvatar:
			plan.directive = true
			plan.removeAvatar = plan.removeAvatar || truthy(val)
		case key == keyRemoveDepartment:
			plan.directive = true
			plan.removeDepartment = truthy(val)
		case key == keyAvatar:
			if !val.Null && strings.TrimSpace(val.Text) != "" {
				errs[key] = "The submitted data was not a file. Check the encoding type on the form."
				continue
			}
			plan.directive = true
			plan.removeAvatar = true
		case keys.has(key):
			plan.account[key] = val
		case profileKeys.has(key):
			plan.profile[key] = val
		default:
			errs[key] = "Unknown field."
		}
	}
	if len(errs) > 0 {
		return nil, apperrors.NewFieldValidation(errs)
	}
	return plan, nil
}

// applyAccount copies present account fields onto a and reports whether anything was set.
func (r *Reconciler) applyAccount(ctx context.Context, a *domain.Account, fields map[string]Value) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	errs := apperrors.FieldErrors{}

	for key, val := range fields {
		if val.Null {
			errs[key] = msgNotNull
			continue
		}
		switch key {
		case "username":
			name := strings.TrimSpace(val.Text)
			if msg := checkUsername(name); msg != "" {
				errs[key] = msg
				continue
			}
			taken, err := r.accounts.UsernameTaken(ctx, name, a.ID)
			if err != nil {
				return false, err
			}
			if taken {
				errs[key] = msgUsernameUsed
				continue
			}
			a.Username = name
		case "email":
			email := strings.ToLower(strings.TrimSpace(val.Text))
			if email == "" {
				errs[key] = msgNotBlank
				continue
			}
			if err := validate.Var(email, "email,max=254"); err != nil {
				errs[key] = "Enter a valid email address."
				continue
			}
			taken, err := r.accounts.EmailTaken(ctx, email, a.ID)
			if err != nil {
				return false, err
			}
			if taken {
				errs[key] = msgEmailTaken
				continue
			}
			a.Email = email
		case "first_name":
			if tooLong(val.Text) {
				errs[key] = "Ensure this field has no more than 150 characters."
				continue
			}
			a.FirstName = val.Text
		case "last_name":
			if tooLong(val.Text) {
				errs[key] = "Ensure this field has no more than 150 characters."
				continue
			}
			a.LastName = val.Text
		case "role":
			role := domain.Role(strings.TrimSpace(val.Text))
			if !role.Valid() {
				errs[key] = strconv.Quote(val.Text) + " is not a valid choice."
				continue
			}
			a.Role = role
		case "is_active":
			active, ok := parseBool(val.Text)
			if !ok {
				errs[key] = msgBadBool
				continue
			}
			a.IsActive = active
		}
	}

	if len(errs) > 0 {
		return false, apperrors.NewFieldValidation(errs)
	}
	return true, nil
}

// applyProfile copies present profile fields onto p and returns p's department.
func (r *Reconciler) applyProfile(ctx context.Context, p *domain.EmployeeProfile, plan *updatePlan) (*domain.Department, error) {
	errs := apperrors.FieldErrors{}

	var dept *domain.Department
	deptLoaded := false
	if val, ok := plan.profile[keyDepartment]; ok || plan.removeDepartment {
		switch {
		case plan.removeDepartment, val.Null, strings.TrimSpace(val.Text) == "":
			p.DepartmentID = nil
			deptLoaded = true
		default:
			id, err := strconv.ParseInt(strings.TrimSpace(val.Text), 10, 64)
			if err != nil {
				errs[keyDepartment] = msgBadPK
				break
			}
			found, err := r.departments.GetByID(ctx, id)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department": id})
			}
			if err != nil {
				return nil, err
			}
			p.DepartmentID = &found.ID
			dept, deptLoaded = found, true
		}
	}

	for key, val := range plan.profile {
		switch key {
		case keyDepartment:
		case "hire_date", "date_of_birth":
			date, err := parseDate(val)
			if err != nil {
				errs[key] = msgBadDate
				continue
			}
			if key == "hire_date" {
				p.HireDate = date
			} else {
				p.DateOfBirth = date
			}
		default:
			if field := profileText(p, key); field != nil {
				if val.Null {
					*field = nil
				} else {
					text := val.Text
					*field = &text
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, apperrors.NewProfileValidation(errs)
	}

	if errs := fieldErrors(validate.Struct(profileRulesFor(p))); len(errs) > 0 {
		return nil, apperrors.NewProfileValidation(errs)
	}

	if !deptLoaded {
		var err error
		if dept, err = r.views.department(ctx, p.DepartmentRef()); err != nil {
			return nil, err
		}
	}
	return dept, nil
}

// profileRules carries the constraints checked on every profile save.
type profileRules struct {
	Position        *string    `json:"position" validate:"omitempty,max=100"`
	IDNumber        *string    `json:"id_number" validate:"omitempty,max=50"`
	Gender          *string    `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Phone           *string    `json:"phone" validate:"omitempty,max=30"`
	PhysicalAddress *string    `json:"physical_address" validate:"omitempty,max=500"`
	PayrollNumber   *string    `json:"payroll_number" validate:"omitempty,max=50"`
	DateOfBirth     *time.Time `json:"date_of_birth" validate:"omitempty,notfuture"`
}

func profileRulesFor(p *domain.EmployeeProfile) profileRules {
	return profileRules{
		Position:        p.Position,
		IDNumber:        p.IDNumber,
		Gender:          p.Gender,
		Phone:           p.Phone,
		PhysicalAddress: p.PhysicalAddress,
		PayrollNumber:   p.PayrollNumber,
		DateOfBirth:     p.DateOfBirth,
	}
}

func profileText(p *domain.EmployeeProfile, key string) **string {
	switch key {
	case "position":
		return &p.Position
	case "id_number":
		return &p.IDNumber
	case "gender":
		return &p.Gender
	case "phone":
		return &p.Phone
	case "physical_address":
		return &p.PhysicalAddress
	case "payroll_number":
		return &p.PayrollNumber
	}
	return nil
}

// tooLong counts characters, not bytes, like the validator's max tag.
func tooLong(s string) bool {
	return validate.Var(s, "max=150") != nil
}

func checkUsername(name string) string {
	switch {
	case name == "":
		return msgNotBlank
	case tooLong(name):
		return "Ensure this field has no more than 150 characters."
	case !usernamePattern.MatchString(name):
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return ""
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. Null and blank clear the date.
func parseDate(v Value) (*time.Time, error) {
	text := strings.TrimSpace(v.Text)
	if v.Null || text == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, text); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return nil, err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, true
	case "false", "0", "no", "off", "f", "n":
		return false, true
	}
	return false, false
}

func truthy(v Value) bool {
	if v.Null {
		return false
	}
	b, _ := parseBool(v.Text)
	return b
}
