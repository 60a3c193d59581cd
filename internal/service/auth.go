package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rafaelmatth/task-manager-backend/internal/config"
	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	users  UserStore
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
}

// Principal is the authenticated caller carried by an access token.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AuthResult struct {
	AccessToken string
	User        Principal
}

type TokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func NewAuthService(users UserStore, cfg config.Config, logger *slog.Logger) (*AuthService, error) {
	if len(cfg.JWT.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > 14 {
		return nil, errors.New("bcrypt cost must be between 4 and 14")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, cfg: cfg, logger: logger, now: time.Now}, nil
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, email, name, string(hash))
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("auth_event", "event", "register", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("auth_event", "event", "login", "user_id", user.ID, "ip", ip)
	return s.issue(user)
}

func (s *AuthService) issue(user *repository.User) (*AuthResult, error) {
	now := s.now().UTC()
	claims := TokenClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTTL)),
			ID:        uuid.NewString(),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken: tok,
		User:        Principal{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (Principal, error) {
	parser := jwt.NewParser(jwt.WithLeeway(s.cfg.JWT.ClockSkew), jwt.WithIssuer(s.cfg.JWT.Issuer))
	claims := &TokenClaims{}

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: userID, Email: claims.Email, Name: claims.Name}, nil
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 50 {
		return fmt.Errorf("%w: name must be between 2 and 50 characters", ErrBadRequest)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrBadRequest)
	}
	return nil
}
