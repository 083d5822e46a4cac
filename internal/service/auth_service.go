package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

const refreshTokenBytes = 32

type credentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// AuthConfig holds the token settings. SingleSession revokes older refresh
// tokens on every login.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool
}

// AuthService signs staff in and out and validates access tokens for the
// JWT middleware.
type AuthService struct {
	store     credentialStore
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	parser    *jwt.Parser
	now       func() time.Time
}

// NewAuthService constructs the service. Zero expiries default to one day for
// access tokens and one week for refresh tokens.
func NewAuthService(store credentialStore, audit *AuditService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt()}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &AuthService{
		store:     store,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		parser:    jwt.NewParser(opts...),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the client.
func (s *AuthService) Login(ctx context.Context, req models.Credentials) (*models.TokenPair, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to look up account")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if s.config.SingleSession {
		if err := s.store.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("could not end previous sessions", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	pair, err := s.issue(ctx, user, req.ClientMeta)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("could not stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.audit.Record(ctx, callerOf(user, req.ClientMeta), models.AuditActionLogin, models.AuditResourceAuth, user.ID, nil, map[string]string{"status": "success"})
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// is revoked, so replaying it fails.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid refresh payload")
	}

	stored, err := s.refreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if stored.Revoked || !s.now().Before(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired or revoked")
	}

	user, err := s.store.FindByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to load account")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if err := s.store.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		return nil, appErrors.Storage(err, "failed to rotate refresh token")
	}
	return s.issue(ctx, user, req.ClientMeta)
}

// Logout revokes one of the caller's refresh tokens.
func (s *AuthService) Logout(ctx context.Context, caller models.Caller, refreshToken string) error {
	stored, err := s.refreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if stored.UserID != caller.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "refresh token belongs to another account")
	}
	if err := s.store.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		return appErrors.Storage(err, "failed to revoke refresh token")
	}

	s.audit.Record(ctx, caller, models.AuditActionLogout, models.AuditResourceAuth, caller.UserID, nil, nil)
	return nil
}

// ChangePassword replaces the caller's password after checking the current
// one. Every refresh token of the account is revoked afterwards.
func (s *AuthService) ChangePassword(ctx context.Context, caller models.Caller, req models.PasswordChange) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid password change")
	}

	user, err := s.account(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Current)) != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}
	if err := s.store.UpdatePassword(ctx, user.ID, string(hash), s.now()); err != nil {
		return appErrors.Storage(err, "failed to update password")
	}
	if err := s.store.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("sessions survived password change", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.audit.Record(ctx, caller, models.AuditActionPasswordChange, models.AuditResourceAuth, user.ID, nil, nil)
	return nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, caller models.Caller) (*models.Profile, error) {
	user, err := s.account(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	profile := profileOf(user)
	return &profile, nil
}

// ValidateToken verifies an access token's signature, algorithm, issuer and
// expiry, and that it names a known role.
func (s *AuthService) ValidateToken(raw string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	token, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) account(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.NotFound("user")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to load account")
	}
	return user, nil
}

func (s *AuthService) refreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	stored, err := s.store.FindRefreshToken(ctx, value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown refresh token")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to load refresh token")
	}
	return stored, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, client models.ClientMeta) (*models.TokenPair, error) {
	now := s.now()
	access, err := s.sign(user, now)
	if err != nil {
		return nil, internalError(err, "failed to sign access token")
	}
	value, err := randomToken()
	if err != nil {
		return nil, internalError(err, "failed to create refresh token")
	}

	refresh := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     value,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
	}
	if err := s.store.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Storage(err, "failed to persist refresh token")
	}

	return &models.TokenPair{
		TokenType:        "Bearer",
		AccessToken:      access,
		ExpiresIn:        int64(s.config.AccessTokenExpiry.Seconds()),
		AccessExpiresAt:  now.Add(s.config.AccessTokenExpiry),
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		Account:          profileOf(user),
	}, nil
}

func (s *AuthService) sign(user *models.User, now time.Time) (string, error) {
	claims := models.AccessClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func internalError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func profileOf(user *models.User) models.Profile {
	return models.Profile{ID: user.ID, Email: user.Email, FullName: user.FullName, Role: user.Role}
}

func callerOf(user *models.User, client models.ClientMeta) models.Caller {
	return models.Caller{UserID: user.ID, Role: user.Role, IP: client.IP, UserAgent: client.UserAgent}
}
