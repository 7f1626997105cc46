package authn

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/platform/requestctx"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

// CookieName is the cookie carrying the token for browser clients.
const CookieName = "auth_token"

// UserLookup loads the account named by a token.
type UserLookup interface {
	Get(ctx context.Context, email string) (user.User, error)
}

// Guard authenticates requests and enforces roles.
type Guard struct {
	issuer *Issuer
	users  UserLookup
}

// NewGuard creates a route guard.
func NewGuard(issuer *Issuer, users UserLookup) *Guard {
	return &Guard{issuer: issuer, users: users}
}

// TokenFromRequest returns the bearer token, falling back to the auth
// cookie.
func TokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// Authenticate resolves the caller of r to a stored account.
func (g *Guard) Authenticate(r *http.Request) (user.User, error) {
	claims, err := g.issuer.Verify(TokenFromRequest(r))
	if err != nil {
		return user.User{}, err
	}
	u, err := g.users.Get(r.Context(), claims.Email)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeUserNotFound {
			return user.User{}, apperrors.New(apperrors.CodeUnauthenticated, "the account for this token no longer exists")
		}
		return user.User{}, err
	}
	return u, nil
}

// Require admits authenticated callers whose role passes allow. A nil
// allow admits every authenticated caller.
func (g *Guard) Require(allow func(user.Role) bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := g.Authenticate(r)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			if allow != nil && !allow(u.Role) {
				httpx.WriteError(w, apperrors.New(apperrors.CodeForbidden, "you do not have permission to perform this action"))
				return
			}
			ctx := requestctx.WithPrincipal(r.Context(), requestctx.Principal{Email: u.Email, Role: string(u.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticated admits any signed-in caller.
func (g *Guard) Authenticated() httpx.Middleware {
	return g.Require(nil)
}

// Admin admits admins and super admins.
func (g *Guard) Admin() httpx.Middleware {
	return g.Require(user.Role.IsAdmin)
}

// SuperAdmin admits only super admins.
func (g *Guard) SuperAdmin() httpx.Middleware {
	return g.Require(func(role user.Role) bool { return role == user.RoleSuperAdmin })
}
