package auth

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"tokencast/config"
	"tokencast/models"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/middleware"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"golang.org/x/crypto/bcrypt"
)

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service wraps the session library with a direct credentials provider backed
// by the users table. Identity management itself (tokens, cookies, XSRF) is
// the library's concern; the rest of the app only ever sees resolved user IDs
// passed explicitly into services.
type Service struct {
	svc   *auth.Service
	users userStore
}

// NewService wires the auth library against the users table.
func NewService(settings *config.Settings, users userStore) *Service {
	tokenDuration := time.Duration(settings.Auth.TokenHours) * time.Hour
	if tokenDuration <= 0 {
		tokenDuration = time.Hour
	}
	cookieDuration := time.Duration(settings.Auth.CookieHours) * time.Hour
	if cookieDuration <= 0 {
		cookieDuration = 24 * time.Hour
	}

	opts := auth.Opts{
		SecretReader: token.SecretFunc(func(aud string) (string, error) {
			return settings.Auth.Secret, nil
		}),
		TokenDuration:  tokenDuration,
		CookieDuration: cookieDuration,
		Issuer:         "tokencast",
		URL:            settings.Server.BaseURL,
		AvatarStore:    avatar.NewLocalFS(filepath.Join(filepath.Dir(settings.Database.Path), "avatars")),
		ClaimsUpd: token.ClaimsUpdFunc(func(claims token.Claims) token.Claims {
			if claims.User == nil {
				return claims
			}
			u, err := users.GetByUsername(context.Background(), claims.User.Name)
			if err == nil && u != nil {
				claims.User.SetAdmin(u.Admin)
				claims.User.SetStrAttr("uid", u.ID)
			}
			return claims
		}),
		Validator: token.ValidatorFunc(func(_ string, claims token.Claims) bool {
			return claims.User != nil
		}),
	}

	svc := auth.NewService(opts)
	svc.AddDirectProvider("local", provider.CredCheckerFunc(func(username, password string) (bool, error) {
		u, err := users.GetByUsername(context.Background(), username)
		if err != nil {
			return false, err
		}
		if u == nil || u.PasswordHash == "" {
			return false, nil
		}
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, nil
	}))

	return &Service{svc: svc, users: users}
}

// Handlers returns the login/logout and avatar http handlers.
func (s *Service) Handlers() (http.Handler, http.Handler) {
	return s.svc.Handlers()
}

// Middleware returns the token-checking middleware.
func (s *Service) Middleware() middleware.Authenticator {
	return s.svc.Middleware()
}

// CurrentUser resolves the authenticated platform account for a request.
func (s *Service) CurrentUser(r *http.Request) (*models.User, error) {
	tokenUser, err := token.GetUserInfo(r)
	if err != nil {
		return nil, fmt.Errorf("%w: no session", models.ErrUnauthorized)
	}
	u, err := s.users.GetByUsername(r.Context(), tokenUser.Name)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: unknown account %q", models.ErrUnauthorized, tokenUser.Name)
	}
	return u, nil
}

// HashPassword returns the bcrypt hash stored alongside an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
