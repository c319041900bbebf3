package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/logging"
	"docvault/internal/server/auth"
	"docvault/internal/server/config"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/repomanager"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength     = 8
	refreshTokenByteCount = 32
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// timeNow is a seam for expiry tests.
var timeNow = time.Now

// UserService handles registration, authentication, and token issuance.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	config      *config.Config
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService,
	cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, activity: activity, config: cfg, logger: logger}
}

// TokenPair is issued on login and refresh. The access token is a short-lived
// JWT; the refresh token is an opaque random string stored server-side.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account. Emails are unique and stored lower case.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailRe.MatchString(email) {
		return nil, common.Errf(common.KindInvalidInput, "invalid email address %q", in.Email)
	}
	if len(in.Password) < minPasswordLength {
		return nil, common.Errf(common.KindInvalidInput,
			"password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "hashing password", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if common.IsKind(err, common.KindConflict) {
			return nil, err
		}
		return nil, common.Wrap(common.KindInternal, "creating user", err)
	}

	s.activity.Record(ctx, created.ID, nil, models.ActionRegister, "account created")

	return created, nil
}

// Login verifies credentials and issues a token pair. Unknown email, wrong
// password, and deactivated accounts all fail identically so the response
// does not reveal which part was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorInvalidCredentials
		}
		return nil, nil, common.Wrap(common.KindInternal, "loading user", err)
	}
	if !user.IsActive {
		return nil, nil, common.ErrorInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, common.ErrorInvalidCredentials
	}

	if err := s.repomanager.Users(s.db).UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "last login update failed", "user_id", user.ID, "error", err)
	}

	pair, err := s.issueTokens(ctx, s.db, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.activity.Record(ctx, user.ID, nil, models.ActionLogin, "logged in")

	return user, pair, nil
}

// RefreshToken rotates a refresh token: the old one is consumed and a new
// pair is issued in the same transaction, so a token can be redeemed once.
func (s *UserService) RefreshToken(ctx context.Context, token string) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		stored, err := s.repomanager.RefreshTokens(tx).Find(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidToken
			}
			return err
		}
		if stored.Expires.Before(timeNow()) {
			return common.ErrRefreshTokenExpired
		}

		// Deactivation must also cut off refresh, or the account stays
		// usable for the lifetime of its refresh tokens.
		user, err := s.repomanager.Users(tx).GetByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidToken
			}
			return err
		}
		if !user.IsActive {
			return common.ErrorInvalidCredentials
		}

		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, token); err != nil {
			return err
		}

		pair, err = s.issueTokens(ctx, tx, stored.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorInvalidToken) ||
			errors.Is(err, common.ErrRefreshTokenExpired) ||
			errors.Is(err, common.ErrorInvalidCredentials) {
			return nil, err
		}
		var appErr *common.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, common.Wrap(common.KindInternal, "refreshing token", err)
	}

	return pair, nil
}

// Logout revokes a refresh token so it can no longer be redeemed. The access
// token keeps working until it expires; only the refresh chain is cut.
func (s *UserService) Logout(ctx context.Context, token string) error {
	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInvalidToken
		}
		return common.Wrap(common.KindInternal, "loading refresh token", err)
	}

	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, token); err != nil {
		return common.Wrap(common.KindInternal, "revoking refresh token", err)
	}

	s.activity.Record(ctx, stored.UserID, nil, models.ActionLogout, "logged out")

	return nil
}

// GetByID loads an account by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "user not found")
		}
		return nil, common.Wrap(common.KindInternal, "loading user", err)
	}
	return user, nil
}

// Deactivate disables the account. Owned documents and grants are untouched.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if err := s.repomanager.Users(s.db).Deactivate(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.E(common.KindNotFound, "user not found")
		}
		return common.Wrap(common.KindInternal, "deactivating user", err)
	}
	return nil
}

func (s *UserService) issueTokens(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, []byte(s.config.SecretKey), s.config.AccessTokenValidityDuration)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "signing access token", err)
	}

	refresh, err := common.MakeRandHexString(refreshTokenByteCount)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "generating refresh token", err)
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, refresh, s.config.RefreshTokenValidityDuration); err != nil {
		return nil, common.Wrap(common.KindInternal, "storing refresh token", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
