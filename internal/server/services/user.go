// Package services contains server-side business logic. This file implements
// UserService, which handles registration, credential checks, issuing JWTs,
// and resolving bearer tokens back to users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avelkers/medrecord/internal/common"
	"github.com/avelkers/medrecord/internal/server/auth"
	"github.com/avelkers/medrecord/internal/server/config"
	"github.com/avelkers/medrecord/internal/server/models"
	"github.com/avelkers/medrecord/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides authentication-related operations:
// - Register: create users with bcrypt-hashed passwords
// - Login: verify credentials and mint an access token
// - Authenticate: resolve a bearer token to the acting user
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	tokenParams                 auth.TokenParams
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokenParams: auth.TokenParams{
			SecretKey: []byte(cfg.SecretKey),
			Issuer:    cfg.TokenIssuer,
			Audience:  cfg.TokenAudience,
		},
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user. A duplicate email yields common.ErrorConflict;
// the first registration is unaffected. The email is matched exactly,
// case-sensitively.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, common.ErrorInternal
	}

	return u, nil
}

// Login verifies the credentials and, on success, returns a signed access
// token. Unknown email and wrong password produce the same error so accounts
// cannot be enumerated.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.tokenParams, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}

// Authenticate verifies the token and loads the encoded user. An invalid or
// expired token, or a user that no longer exists, yields ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, _, err := auth.ParseToken(token, s.tokenParams)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}
