package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/security"
	"github.com/noah-isme/husma-donation-api/pkg/validation"
)

const donorIDAllocationAttempts = 3

type donorAuthRepository interface {
	MaxDonorID(ctx context.Context) (string, error)
	Create(ctx context.Context, donor *models.Donor) error
	FindByUsername(ctx context.Context, username string) (*models.Donor, error)
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	ExistsBy(ctx context.Context, column, value string) (bool, error)
}

type accountNotifier interface {
	Welcome(donor *models.Donor)
	PasswordReset(donor *models.Donor)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	AdminUsername     string
	AdminPassword     string
}

// AuthService registers donors and issues access tokens for donors and staff.
type AuthService struct {
	repo      donorAuthRepository
	notifier  accountNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	adminHash []byte
}

// NewAuthService constructs an AuthService. The admin password is hashed once here.
func NewAuthService(repo donorAuthRepository, notifier accountNotifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	svc := &AuthService{repo: repo, notifier: notifier, validator: validate, logger: logger, config: config}
	if config.AdminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("admin credential unusable", zap.Error(err))
		} else {
			svc.adminHash = hash
		}
	}
	return svc
}

// Register creates a donor account and allocates the next D### identifier.
func (s *AuthService) Register(ctx context.Context, req models.RegisterDonorRequest) (*models.Donor, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.NIC = validation.NormalizeNIC(req.NIC)
	req.Phone = validation.NormalizePhone(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, registrationMessage(req))
	}

	checks := []struct {
		column, value, message string
	}{
		{"username", req.Username, "username already exists"},
		{"email", req.Email, "email already registered"},
		{"nic", req.NIC, "NIC already registered"},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		exists, err := s.repo.ExistsBy(ctx, check.column, check.value)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate "+check.column)
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, check.message)
		}
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	donor := &models.Donor{
		Name:         strings.TrimSpace(req.Name),
		NIC:          req.NIC,
		Phone:        req.Phone,
		Username:     req.Username,
		PasswordHash: hash,
		IsVerified:   true,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Email != "" {
		email := req.Email
		donor.Email = &email
	}

	for attempt := 1; ; attempt++ {
		maxID, err := s.repo.MaxDonorID(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate donor id")
		}
		donor.DonorID, err = NextDonorID(maxID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate donor id")
		}
		err = s.repo.Create(ctx, donor)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create donor")
		}
		if attempt >= donorIDAllocationAttempts {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "donor registration conflicted, please retry")
		}
		s.logger.Warn("donor id collision, retrying", zap.String("donor_id", donor.DonorID), zap.Int("attempt", attempt))
	}

	s.logger.Info("donor registered", zap.String("donor_id", donor.DonorID))
	if s.notifier != nil && donor.Email != nil {
		s.notifier.Welcome(donor)
	}
	return donor, nil
}

// Authenticate resolves a donor by username, then by email, and checks the password.
// Every failure looks the same to the caller.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.Donor, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username/email or password")
	}
	donor, err := s.findDonor(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if donor == nil || !security.CheckPassword(donor.PasswordHash, password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username/email or password")
	}
	return donor, nil
}

// Login authenticates a donor and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	donor, err := s.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}
	info := models.UserInfo{
		ID:       donor.DonorID,
		Username: donor.Username,
		Name:     donor.Name,
		Email:    donor.EmailAddress(),
		Phone:    donor.Phone,
		Role:     models.RoleDonor,
	}
	return s.issue(info)
}

// AdminLogin checks the shared staff credential.
func (s *AuthService) AdminLogin(_ context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.config.AdminUsername)) == 1
	if len(s.adminHash) == 0 || bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)) != nil || !usernameOK {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	return s.issue(models.UserInfo{
		ID:       "admin",
		Username: s.config.AdminUsername,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
	})
}

// RequestPasswordReset notifies a known donor how to reach support. Unknown
// identifiers succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req models.PasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password reset payload")
	}
	donor, err := s.findDonor(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		return err
	}
	if donor == nil {
		s.logger.Info("password reset requested for unknown donor")
		return nil
	}
	s.logger.Info("password reset requested", zap.String("donor_id", donor.DonorID))
	if s.notifier != nil {
		s.notifier.PasswordReset(donor)
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) findDonor(ctx context.Context, identifier string) (*models.Donor, error) {
	donor, err := s.repo.FindByUsername(ctx, identifier)
	if err == nil {
		return donor, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch donor")
	}
	if !strings.Contains(identifier, "@") {
		return nil, nil
	}
	donor, err = s.repo.FindByEmail(ctx, identifier)
	if err == nil {
		return donor, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch donor")
}

func (s *AuthService) issue(info models.UserInfo) (*models.LoginResponse, error) {
	token, issuedAt, err := s.generateAccessToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        info,
	}, nil
}

func (s *AuthService) generateAccessToken(info models.UserInfo) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   info.ID,
		Role:     info.Role,
		Username: info.Username,
		Name:     info.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

// registrationMessage reports the first failing donor field with its human reason.
func registrationMessage(req models.RegisterDonorRequest) string {
	if ok, reason := validation.ValidateNIC(req.NIC); !ok {
		return reason
	}
	if ok, reason := validation.ValidatePhone(req.Phone); !ok {
		return reason
	}
	if req.Email != "" {
		if ok, reason := validation.ValidateEmail(req.Email); !ok {
			return reason
		}
	}
	if ok, reason := validation.ValidatePasswordStrength(req.Password); !ok {
		return reason
	}
	return "invalid registration payload"
}
