// Package user defines accounts, roles, and the password policy.
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

// Role is an account privilege level.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ParseRole validates a role name.
func ParseRole(value string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return role, nil
	default:
		return "", apperrors.Invalid("role", "role must be user, admin, or super_admin")
	}
}

// IsAdmin reports whether the role grants admin operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is an account record.
type User struct {
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims, lower-cases, and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.Invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", apperrors.Invalid("email", "email address is invalid")
	}
	return email, nil
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.Invalid("password", "password must be at least 8 characters")
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return apperrors.Invalid("password", "password must contain an uppercase letter")
	}
	if !digit {
		return apperrors.Invalid("password", "password must contain a digit")
	}
	return nil
}

// HashPassword hashes password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// New builds a user account from registration input.
func New(email, password string, role Role, cost int, now func() time.Time) (User, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}
	if role == "" {
		role = RoleUser
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}
	createdAt := now().UTC()
	return User{
		Email:        normalized,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

var errForbidden = apperrors.New(apperrors.CodeForbidden, "you do not have permission to perform this action")

// CanDelete checks whether actor may delete target. Admins may delete only
// regular users; super admins may delete anyone except themselves.
func CanDelete(actor, target User) error {
	if actor.Email == target.Email {
		return apperrors.New(apperrors.CodeInvalidRoleTransition, "you cannot delete your own account")
	}
	switch actor.Role {
	case RoleSuperAdmin:
		return nil
	case RoleAdmin:
		if target.Role == RoleUser {
			return nil
		}
		return errForbidden
	default:
		return errForbidden
	}
}

// Upgrade promotes a user to admin.
func Upgrade(actor, target User) (Role, error) {
	if !actor.Role.IsAdmin() {
		return "", errForbidden
	}
	if target.Role != RoleUser {
		return "", apperrors.New(apperrors.CodeInvalidRoleTransition, "only users can be upgraded to admin")
	}
	return RoleAdmin, nil
}

// Downgrade demotes an admin to user.
func Downgrade(actor, target User) (Role, error) {
	if actor.Role != RoleSuperAdmin {
		return "", errForbidden
	}
	if target.Role != RoleAdmin {
		return "", apperrors.New(apperrors.CodeInvalidRoleTransition, "only admins can be downgraded to user")
	}
	return RoleUser, nil
}
