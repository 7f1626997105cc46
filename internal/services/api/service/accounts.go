package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

var (
	errAccountNotFound    = apperrors.New(apperrors.CodeUserNotFound, "we couldn't find an account with that email")
	errInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "invalid email or password")
)

// Accounts manages user registration, credentials, and roles.
type Accounts struct {
	store      storage.UserStore
	clock      func() time.Time
	bcryptCost int
}

// NewAccounts creates an account service. A zero bcryptCost uses the
// bcrypt default.
func NewAccounts(store storage.UserStore, bcryptCost int) *Accounts {
	return &Accounts{store: store, clock: time.Now, bcryptCost: bcryptCost}
}

func (a *Accounts) configured() error {
	if a == nil || a.store == nil {
		return fmt.Errorf("user store is not configured")
	}
	return nil
}

func (a *Accounts) lookup(ctx context.Context, email string) (user.User, error) {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return user.User{}, err
	}
	u, err := a.store.GetUser(ctx, normalized)
	if err != nil {
		return user.User{}, notFound(err, apperrors.CodeUserNotFound, errAccountNotFound.Message)
	}
	return u, nil
}

// Register creates a regular user account.
func (a *Accounts) Register(ctx context.Context, email, password string) (user.User, error) {
	if err := a.configured(); err != nil {
		return user.User{}, err
	}
	u, err := user.New(email, password, user.RoleUser, a.bcryptCost, a.clock)
	if err != nil {
		return user.User{}, err
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// Authenticate checks credentials and returns the account.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	if err := a.configured(); err != nil {
		return user.User{}, err
	}
	u, err := a.lookup(ctx, email)
	if err != nil {
		return user.User{}, err
	}
	ok, err := user.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return user.User{}, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return user.User{}, errInvalidCredentials
	}
	return u, nil
}

// Get returns one account.
func (a *Accounts) Get(ctx context.Context, email string) (user.User, error) {
	if err := a.configured(); err != nil {
		return user.User{}, err
	}
	return a.lookup(ctx, email)
}

// List returns every account.
func (a *Accounts) List(ctx context.Context) ([]user.User, error) {
	if err := a.configured(); err != nil {
		return nil, err
	}
	return a.store.ListUsers(ctx)
}

// ChangePassword replaces the password after verifying the current one.
func (a *Accounts) ChangePassword(ctx context.Context, email, current, next string) error {
	u, err := a.Authenticate(ctx, email, current)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeInvalidCredentials {
			return apperrors.New(apperrors.CodeInvalidCredentials, "current password is incorrect")
		}
		return err
	}
	if err := user.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := user.HashPassword(next, a.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return notFound(a.store.UpdateUserPassword(ctx, u.Email, hash, a.clock().UTC()),
		apperrors.CodeUserNotFound, errAccountNotFound.Message)
}

// Delete removes target on behalf of actor.
func (a *Accounts) Delete(ctx context.Context, actorEmail, targetEmail string) error {
	actor, target, err := a.pair(ctx, actorEmail, targetEmail)
	if err != nil {
		return err
	}
	if err := user.CanDelete(actor, target); err != nil {
		return err
	}
	return notFound(a.store.DeleteUser(ctx, target.Email), apperrors.CodeUserNotFound, errAccountNotFound.Message)
}

// UpgradeRole promotes target to admin on behalf of actor.
func (a *Accounts) UpgradeRole(ctx context.Context, actorEmail, targetEmail string) (user.User, error) {
	return a.changeRole(ctx, actorEmail, targetEmail, user.Upgrade)
}

// DowngradeRole demotes target to user on behalf of actor.
func (a *Accounts) DowngradeRole(ctx context.Context, actorEmail, targetEmail string) (user.User, error) {
	return a.changeRole(ctx, actorEmail, targetEmail, user.Downgrade)
}

func (a *Accounts) changeRole(ctx context.Context, actorEmail, targetEmail string, transition func(actor, target user.User) (user.Role, error)) (user.User, error) {
	actor, target, err := a.pair(ctx, actorEmail, targetEmail)
	if err != nil {
		return user.User{}, err
	}
	role, err := transition(actor, target)
	if err != nil {
		return user.User{}, err
	}
	now := a.clock().UTC()
	if err := a.store.UpdateUserRole(ctx, target.Email, role, now); err != nil {
		return user.User{}, notFound(err, apperrors.CodeUserNotFound, errAccountNotFound.Message)
	}
	target.Role = role
	target.UpdatedAt = now
	return target, nil
}

func (a *Accounts) pair(ctx context.Context, actorEmail, targetEmail string) (user.User, user.User, error) {
	if err := a.configured(); err != nil {
		return user.User{}, user.User{}, err
	}
	actor, err := a.lookup(ctx, actorEmail)
	if err != nil {
		return user.User{}, user.User{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	target, err := a.lookup(ctx, targetEmail)
	if err != nil {
		return user.User{}, user.User{}, err
	}
	return actor, target, nil
}
