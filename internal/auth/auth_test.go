package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default().Auth
	cfg.BcryptCost = bcrypt.MinCost
	s, err := New(context.Background(), db, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s, db
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	ident, token, err := s.Register(ctx, "  alice ", "secret1", "alice@example.com")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if ident.Username != "alice" || ident.UserID <= 0 || token == "" {
		t.Fatalf("unexpected identity %+v token %q", ident, token)
	}

	got, err := s.ValidateToken(token)
	if err != nil || got != ident {
		t.Errorf("ValidateToken = %+v, %v; want %+v", got, err, ident)
	}

	logged, token2, err := s.Login(ctx, "alice", "secret1", "1.2.3.4")
	if err != nil || logged != ident || token2 == "" {
		t.Errorf("Login = %+v, %q, %v", logged, token2, err)
	}

	if _, _, err := s.Register(ctx, "alice", "secret1", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register: got %v, want ErrUserExists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService(t)
	tests := []struct {
		name     string
		username string
		password string
		email    string
	}{
		{"short username", "a", "secret1", ""},
		{"long username", "abcdefghijklmnopq", "secret1", ""},
		{"bad characters", "<script>", "secret1", ""},
		{"short password", "bob", "12345", ""},
		{"bad email", "bob", "secret1", "not-an-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tt.username, tt.password, tt.email)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLoginFailures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, _, err := s.Register(ctx, "carol", "secret1", ""); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Login(ctx, "carol", "wrong", "ip"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := s.Login(ctx, "nobody", "secret1", "ip2"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	now := time.Unix(1_000_000, 0)
	s.now = func() time.Time { return now }

	for i := 0; i < s.cfg.LoginAttemptsPerMin; i++ {
		if _, _, err := s.Login(ctx, "ghost", "x", "9.9.9.9"); errors.Is(err, ErrRateLimited) {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	if _, _, err := s.Login(ctx, "ghost", "x", "9.9.9.9"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if _, _, err := s.Login(ctx, "ghost", "x", "8.8.8.8"); errors.Is(err, ErrRateLimited) {
		t.Error("other ips must not be limited")
	}

	now = now.Add(loginRateWindow + time.Second)
	s.Sweep()
	if _, _, err := s.Login(ctx, "ghost", "x", "9.9.9.9"); errors.Is(err, ErrRateLimited) {
		t.Error("limit should reset after the window")
	}
}

func TestValidateToken(t *testing.T) {
	s, _ := newTestService(t)
	good, err := s.Issue(Identity{UserID: 7, Username: "dave"})
	if err != nil {
		t.Fatal(err)
	}

	other, _ := newTestService(t)
	foreign, err := other.Issue(Identity{UserID: 7, Username: "dave"})
	if err != nil {
		t.Fatal(err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7, Username: "dave"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"valid", good, nil},
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"other key", foreign, ErrInvalidToken},
		{"alg none", noneToken, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	s, _ := newTestService(t)
	issued := time.Now().Add(-2 * s.cfg.TokenTTL)
	s.now = func() time.Time { return issued }
	token, err := s.Issue(Identity{UserID: 1, Username: "erin"})
	if err != nil {
		t.Fatal(err)
	}
	s.now = time.Now
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}
}

func TestSecretPersisted(t *testing.T) {
	s, db := newTestService(t)
	token, err := s.Issue(Identity{UserID: 3, Username: "frank"})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Auth
	again, err := New(context.Background(), db, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := again.ValidateToken(token); err != nil {
		t.Errorf("token from previous start rejected: %v", err)
	}
}
