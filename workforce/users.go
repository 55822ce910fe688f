package workforce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Directory registers and looks up users. Credentials are handled upstream.
type Directory struct {
	Store    UserStore
	Policy   Policy
	Clock    Clock
	Location *time.Location
	Logger   *slog.Logger
}

// NewDirectory returns a directory seeding balances from the default policy.
// New hires default to today in Location.
func NewDirectory(store UserStore) *Directory {
	return &Directory{
		Store:    store,
		Policy:   DefaultPolicy(),
		Clock:    SystemClock,
		Location: time.UTC,
		Logger:   slog.Default(),
	}
}

// NewUser describes a user to register.
type NewUser struct {
	Name     string
	Email    string
	Role     Role
	HireDate Date
}

// Register creates a user with the policy's yearly entitlements.
func (d *Directory) Register(ctx context.Context, in NewUser) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, in.Email)
	}
	if in.Role == "" {
		in.Role = RoleEmployee
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	existing, err := d.Store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	now := d.Clock.Now()
	if in.HireDate.IsZero() {
		in.HireDate = DateOf(now, d.Location)
	}
	u := User{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		Email:              in.Email,
		Role:               in.Role,
		HireDate:           in.HireDate,
		AnnualLeaveBalance: d.Policy.AnnualLeaveDays,
		SickLeaveBalance:   d.Policy.SickLeaveDays,
		CreatedAt:          now,
	}
	if err := d.Store.CreateUser(ctx, u); err != nil {
		return nil, storeErr("create user", err)
	}

	d.Logger.Info("user registered", slog.String("user_id", u.ID), slog.String("role", string(u.Role)))
	return &u, nil
}

// Get returns the user with id or ErrUserNotFound.
func (d *Directory) Get(ctx context.Context, id string) (*User, error) {
	u, err := d.Store.FindUserByID(ctx, id)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
