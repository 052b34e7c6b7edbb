// Package auth registers accounts, checks passwords and issues the JWTs that
// gate the game socket.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/store"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrUserExists     = errors.New("username or email already taken")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrRateLimited    = errors.New("too many login attempts, try again later")
	// ErrInvalidInput wraps every registration validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	secretKey       = "jwt_secret"
	loginRateWindow = time.Minute
)

// Identity is what a valid token proves.
type Identity struct {
	UserID   int64
	Username string
}

// Claims are the token's payload.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Accounts is the storage the service needs.
type Accounts interface {
	CreateUser(ctx context.Context, username, email, passHash string) (int64, error)
	UserByUsername(ctx context.Context, username string) (*store.User, error)
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Service handles authentication.
type Service struct {
	db     Accounts
	cfg    config.AuthConfig
	secret []byte
	now    func() time.Time

	// Login attempts per IP
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	count   int
	resetAt time.Time
}

// New creates the service. The signing key is cfg.Secret when set, otherwise
// it is loaded from the settings table, generated on first start.
func New(ctx context.Context, db Accounts, cfg config.AuthConfig) (*Service, error) {
	s := &Service{
		db:      db,
		cfg:     cfg,
		now:     time.Now,
		rateMap: make(map[string]*rateEntry),
	}
	if cfg.Secret != "" {
		s.secret = []byte(cfg.Secret)
		return s, nil
	}
	secret, err := loadOrCreateSecret(ctx, db)
	if err != nil {
		return nil, err
	}
	s.secret = secret
	return s, nil
}

func loadOrCreateSecret(ctx context.Context, db Accounts) ([]byte, error) {
	h, err := db.Setting(ctx, secretKey)
	switch {
	case err == nil:
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
		slog.Warn("stored jwt secret is malformed, generating a new one")
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("loading jwt secret: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating jwt secret: %w", err)
	}
	if err := db.SetSetting(ctx, secretKey, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("storing jwt secret: %w", err)
	}
	return secret, nil
}

// Register creates an account and returns its identity and a token.
func (s *Service) Register(ctx context.Context, username, password, email string) (Identity, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := s.validate(username, password, email); err != nil {
		return Identity{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("hashing password: %w", err)
	}

	id, err := s.db.CreateUser(ctx, username, email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return Identity{}, "", ErrUserExists
	}
	if err != nil {
		return Identity{}, "", err
	}

	ident := Identity{UserID: id, Username: username}
	token, err := s.Issue(ident)
	if err != nil {
		return Identity{}, "", err
	}
	return ident, token, nil
}

func (s *Service) validate(username, password, email string) error {
	n := utf8.RuneCountInString(username)
	if n < s.cfg.MinUsernameLen || n > s.cfg.MaxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, s.cfg.MinUsernameLen, s.cfg.MaxUsernameLen)
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return fmt.Errorf("%w: username may only contain letters, digits, _ and -", ErrInvalidInput)
		}
	}
	if len(password) < s.cfg.MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.cfg.MinPasswordLen)
	}
	// bcrypt ignores anything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", ErrInvalidInput)
	}
	if email != "" && (!strings.Contains(email, "@") || len(email) > 254) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}

// Login checks a password and returns a fresh token. Attempts are limited
// per ip.
func (s *Service) Login(ctx context.Context, username, password, ip string) (Identity, string, error) {
	if !s.checkRate(ip) {
		return Identity{}, "", ErrRateLimited
	}

	u, err := s.db.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, "", ErrBadCredentials
	}
	if err != nil {
		return Identity{}, "", err
	}
	if u.PassHash == "" {
		return Identity{}, "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(password)); err != nil {
		return Identity{}, "", ErrBadCredentials
	}

	ident := Identity{UserID: u.ID, Username: u.Username}
	token, err := s.Issue(ident)
	if err != nil {
		return Identity{}, "", err
	}
	return ident, token, nil
}

// Issue signs a token for ident.
func (s *Service) Issue(ident Identity) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   ident.UserID,
		Username: ident.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ValidateToken checks a token's signature and expiry. Any failure is
// reported as ErrInvalidToken; an empty token is ErrMissingToken.
func (s *Service) ValidateToken(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func (s *Service) checkRate(ip string) bool {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	now := s.now()
	entry, ok := s.rateMap[ip]
	if !ok || now.After(entry.resetAt) {
		s.rateMap[ip] = &rateEntry{count: 1, resetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.count++
	return entry.count <= s.cfg.LoginAttemptsPerMin
}

// Sweep drops expired rate limit entries.
func (s *Service) Sweep() {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()
	now := s.now()
	for ip, e := range s.rateMap {
		if now.After(e.resetAt) {
			delete(s.rateMap, ip)
		}
	}
}
