// Package auth implements signup with email verification, password and
// Google login, and access-token validation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/plaza/internal/email"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/otp"
	"github.com/zfogg/plaza/internal/repository"
	"github.com/zfogg/plaza/internal/search"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CodeGenerator issues signup codes
type CodeGenerator interface {
	Generate(email string) (string, error)
}

// Deps are the collaborators of Service. Nil optional fields fall back to
// no-op implementations.
type Deps struct {
	DB        *gorm.DB
	Tokens    *TokenIssuer
	OTPStore  otp.Store
	Codes     CodeGenerator
	Mailer    email.Sender
	Hasher    PasswordHasher
	Verifier  TokenVerifier
	Exchanger CodeExchanger
	Indexer   search.Indexer
	Events    events.Publisher

	GoogleClientID string
}

// Service handles all authentication operations
type Service struct {
	users     repository.UserRepository
	tokens    *TokenIssuer
	otps      otp.Store
	codes     CodeGenerator
	mailer    email.Sender
	hasher    PasswordHasher
	verifier  TokenVerifier
	exchanger CodeExchanger
	indexer   search.Indexer
	events    events.Publisher
	clientID  string
}

func NewService(d Deps) *Service {
	s := &Service{
		users:     repository.NewUserRepository(d.DB),
		tokens:    d.Tokens,
		otps:      d.OTPStore,
		codes:     d.Codes,
		mailer:    d.Mailer,
		hasher:    d.Hasher,
		verifier:  d.Verifier,
		exchanger: d.Exchanger,
		indexer:   d.Indexer,
		events:    d.Events,
		clientID:  d.GoogleClientID,
	}
	if s.codes == nil {
		s.codes = otp.NewGenerator("Plaza")
	}
	if s.hasher == nil {
		s.hasher = NewArgon2Hasher()
	}
	if s.mailer == nil {
		s.mailer = email.LogSender{}
	}
	if s.indexer == nil {
		s.indexer = search.NoopIndexer{}
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	return s
}

// AuthResponse is returned by every successful login or registration
type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	OTP      string `json:"otp" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// checkAvailable fails with ALREADY_EXISTS when email or username is taken.
// Email is reported first.
func (s *Service) checkAvailable(ctx context.Context, emailAddr, username string) error {
	existing, err := s.users.FindConflict(ctx, emailAddr, username)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if strings.EqualFold(existing.Email, strings.TrimSpace(emailAddr)) {
		return apperrors.AlreadyExists("Email already exists")
	}
	return apperrors.AlreadyExists("Username already exists")
}

// RequestSignupOTP stores a fresh code for the address and mails it. If the
// mail cannot be sent the stored code is removed again.
func (s *Service) RequestSignupOTP(ctx context.Context, req SignupRequest) (string, error) {
	if err := s.checkAvailable(ctx, req.Email, req.Username); err != nil {
		return "", err
	}

	code, err := s.codes.Generate(req.Email)
	if err != nil {
		metrics.Get().OTPFailuresTotal.WithLabelValues("generate").Inc()
		return "", apperrors.InternalError("Failed to generate OTP", err)
	}

	if err := s.otps.Save(ctx, req.Email, code, otp.TTL); err != nil {
		metrics.Get().OTPFailuresTotal.WithLabelValues("store").Inc()
		return "", apperrors.InternalError("Failed to store OTP", err)
	}

	if err := s.mailer.SendOTP(ctx, req.Email, code); err != nil {
		metrics.Get().OTPFailuresTotal.WithLabelValues("send").Inc()
		if delErr := s.otps.Delete(ctx, req.Email); delErr != nil {
			logger.ErrorWithErr("Failed to remove undelivered OTP", delErr, zap.String("email", req.Email))
		}
		return "", apperrors.UpstreamFailure("email", err)
	}

	metrics.Get().OTPIssuedTotal.Inc()
	return "OTP sent successfully", nil
}

// Register verifies the emailed code and creates the account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.checkAvailable(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}

	stored, err := s.otps.Get(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !otp.Matches(stored, req.OTP) {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("register", "invalid_otp").Inc()
		return nil, apperrors.InvalidCredentials("Invalid OTP")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.InternalError("Failed to hash password", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.otps.Delete(ctx, req.Email); err != nil {
		logger.WarnWithErr("Failed to delete used OTP", err, zap.String("email", user.Email))
	}

	if err := s.indexer.IndexUser(ctx, user); err != nil {
		metrics.Get().SearchIndexErrors.WithLabelValues("user").Inc()
		logger.WarnWithErr("Failed to index user", err, logger.WithUserID(user.ID))
	}
	s.events.Publish(ctx, events.Event{Type: events.UserRegistered, Key: user.ID, ActorID: user.ID})

	metrics.Get().AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	return s.issue(ctx, user)
}

// Login checks email and password. A blocked account is rejected before
// the password is looked at.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("password", "unknown_user").Inc()
		return nil, apperrors.InvalidCredentials("")
	}
	if err != nil {
		return nil, err
	}

	if user.IsBlocked {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("password", "blocked").Inc()
		return nil, apperrors.AccountBlocked("")
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("password", "bad_password").Inc()
		return nil, apperrors.InvalidCredentials("")
	}

	metrics.Get().AuthAttemptsTotal.WithLabelValues("password", "success").Inc()
	return s.issue(ctx, user)
}

// GoogleLogin signs in an existing user with a Google ID token
func (s *Service) GoogleLogin(ctx context.Context, credential string) (*AuthResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, apperrors.InvalidArgument("ID token is missing")
	}
	if s.verifier == nil {
		return nil, apperrors.UpstreamFailure("google", errors.New("google sign-in is not configured"))
	}

	identity, err := s.verifier.Verify(ctx, credential, s.clientID)
	if err != nil {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("google", "verify_failed").Inc()
		return nil, apperrors.UpstreamFailure("google", err)
	}
	return s.loginIdentity(ctx, identity)
}

func (s *Service) loginIdentity(ctx context.Context, identity *GoogleIdentity) (*AuthResponse, error) {
	if identity.Email == "" {
		return nil, apperrors.InvalidCredentials("Google account has no email")
	}

	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.Get().AuthAttemptsTotal.WithLabelValues("google", "unknown_user").Inc()
		}
		return nil, err
	}
	if user.IsBlocked {
		metrics.Get().AuthAttemptsTotal.WithLabelValues("google", "blocked").Inc()
		return nil, apperrors.AccountBlocked("")
	}

	metrics.Get().AuthAttemptsTotal.WithLabelValues("google", "success").Inc()
	return s.issue(ctx, user)
}

// GoogleAuthURL returns the consent-screen URL for the authorization-code flow
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.exchanger == nil {
		return "", apperrors.UpstreamFailure("google", errors.New("google sign-in is not configured"))
	}
	return s.exchanger.AuthCodeURL(state), nil
}

// GoogleCallback exchanges an authorization code and logs the user in the
// same way as GoogleLogin
func (s *Service) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.InvalidArgument("Authorization code is missing")
	}
	if s.exchanger == nil {
		return nil, apperrors.UpstreamFailure("google", errors.New("google sign-in is not configured"))
	}

	idToken, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.UpstreamFailure("google", err)
	}
	return s.GoogleLogin(ctx, idToken)
}

// Logout clears the session token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	user, err := s.users.GetByToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.users.SetToken(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

// ValidateToken parses an access token. Invalid tokens yield UNAUTHENTICATED.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, apperrors.Unauthenticated("Invalid or expired token")
	}
	return claims, nil
}

// CurrentUser loads the user named by validated claims
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	access, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.InternalError("Failed to issue token", err)
	}

	refresh := newRefreshToken()
	if err := s.users.SetToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	user.Token = &refresh

	return &AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}
