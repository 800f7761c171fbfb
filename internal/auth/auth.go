// Package auth issues and validates the bearer tokens guarding the API and provisions
// the users allowed to request them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"datamart/config"
	"datamart/internal/domain"
	"datamart/models"
)

const (
	msgBadLogin     = "Incorrect username or password"
	msgBadToken     = "Could not validate credentials"
	msgUserExists   = "user already exists"
	TokenTypeBearer = "bearer"
)

// Identity is the caller behind a valid token.
type Identity struct {
	UserID   int64
	Username string
}

// Token is the body returned by the token endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type credentials struct {
	Username string `validate:"required,max=150"`
	Password string `validate:"required,max=72"`
}

type newUser struct {
	Username string `validate:"required,min=3,max=150"`
	Password string `validate:"required,min=6,max=72"`
}

type Service struct {
	db       *gorm.DB
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	validate *validator.Validate
}

func NewService(db *gorm.DB, cfg config.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 300 * time.Minute
	}
	return &Service{
		db:       db,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		now:      time.Now,
		validate: validator.New(),
	}, nil
}

// SetClock replaces the time source used for token issue and expiry checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Authenticate checks the password of an active user and returns a signed token.
// Every failure reads the same so callers cannot probe for usernames.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Token, error) {
	if err := s.validate.Struct(credentials{Username: username, Password: password}); err != nil {
		return nil, domain.ErrAuth(msgBadLogin)
	}

	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrAuth(msgBadLogin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, domain.ErrAuth(msgBadLogin)
	}

	signed, err := s.issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: TokenTypeBearer}, nil
}

func (s *Service) issue(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Resolve verifies token and returns the identity of its still-active subject.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return nil, domain.ErrAuth(msgBadToken)
	}

	user, err := s.findUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrAuth(msgBadToken)
	}
	return &Identity{UserID: user.ID, Username: user.Username}, nil
}

// CreateUser stores a new active user with a bcrypt hash of password.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := s.validate.Struct(newUser{Username: username, Password: password}); err != nil {
		return nil, domain.ErrValidation("invalid user: %s", err.Error())
	}

	existing, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrValidation(msgUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:       username,
		HashedPassword: string(hash),
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrValidation(msgUserExists)
		}
		return nil, domain.ErrStore("create user", err)
	}
	return user, nil
}

func (s *Service) findUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrStore("find user", err)
	}
	return &user, nil
}
