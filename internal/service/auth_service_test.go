package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/security"
)

type fakeDonorRepo struct {
	donors      map[string]*models.Donor
	createCalls int
	duplicates  int
	existsCalls []string
	err         error
}

func newFakeDonorRepo(donors ...*models.Donor) *fakeDonorRepo {
	repo := &fakeDonorRepo{donors: map[string]*models.Donor{}}
	for _, d := range donors {
		repo.donors[d.DonorID] = d
	}
	return repo
}

func (f *fakeDonorRepo) MaxDonorID(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	max := ""
	for id := range f.donors {
		if len(id) > len(max) || (len(id) == len(max) && id > max) {
			max = id
		}
	}
	return max, nil
}

func (f *fakeDonorRepo) Create(_ context.Context, donor *models.Donor) error {
	f.createCalls++
	if f.duplicates > 0 {
		f.duplicates--
		return fmt.Errorf("create donor: %w", repository.ErrDuplicateKey)
	}
	if _, ok := f.donors[donor.DonorID]; ok {
		return repository.ErrDuplicateKey
	}
	stored := *donor
	f.donors[donor.DonorID] = &stored
	return nil
}

func (f *fakeDonorRepo) find(match func(*models.Donor) bool) (*models.Donor, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.donors {
		if match(d) {
			return d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDonorRepo) FindByID(_ context.Context, id string) (*models.Donor, error) {
	return f.find(func(d *models.Donor) bool { return d.DonorID == id })
}

func (f *fakeDonorRepo) FindByUsername(_ context.Context, username string) (*models.Donor, error) {
	return f.find(func(d *models.Donor) bool { return d.Username == username })
}

func (f *fakeDonorRepo) FindByEmail(_ context.Context, email string) (*models.Donor, error) {
	return f.find(func(d *models.Donor) bool { return d.EmailAddress() == email })
}

func (f *fakeDonorRepo) ExistsBy(_ context.Context, column, value string) (bool, error) {
	f.existsCalls = append(f.existsCalls, column)
	_, err := f.find(func(d *models.Donor) bool {
		switch column {
		case "username":
			return d.Username == value
		case "email":
			return d.EmailAddress() == value
		case "nic":
			return d.NIC == value
		}
		return false
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeDonorRepo) List(context.Context, models.DonorFilter) ([]models.Donor, int, error) {
	out := make([]models.Donor, 0, len(f.donors))
	for _, d := range f.donors {
		out = append(out, *d)
	}
	return out, len(out), f.err
}

type recordingNotifier struct {
	welcomed []string
	resets   []string
	notices  []DonationNotice
}

func (r *recordingNotifier) Welcome(d *models.Donor) { r.welcomed = append(r.welcomed, d.DonorID) }
func (r *recordingNotifier) PasswordReset(d *models.Donor) { r.resets = append(r.resets, d.DonorID) }
func (r *recordingNotifier) DonationReceived(n DonationNotice) { r.notices = append(r.notices, n) }

func existingDonor(t *testing.T) *models.Donor {
	t.Helper()
	hash, err := security.HashPassword("Secret#123")
	require.NoError(t, err)
	email := "alice@example.com"
	return &models.Donor{
		DonorID: "D001", Name: "Alice", NIC: "199012345678", Phone: "0771234567",
		Email: &email, Username: "alice", PasswordHash: hash, IsVerified: true,
	}
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "husma-test",
		AdminUsername:     "admin",
		AdminPassword:     "admin123",
	}
}

func validRegistration() models.RegisterDonorRequest {
	return models.RegisterDonorRequest{
		Name:     "Bob",
		NIC:      "901234567v",
		Phone:    "077-987 6543",
		Email:    "bob@example.com",
		Username: "bob",
		Password: "Str0ng!pass",
	}
}

func TestAuthServiceRegisterAllocatesNextID(t *testing.T) {
	repo := newFakeDonorRepo(existingDonor(t))
	notifier := &recordingNotifier{}
	svc := NewAuthService(repo, notifier, nil, zap.NewNop(), testAuthConfig())

	donor, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "D002", donor.DonorID)
	assert.Equal(t, "901234567V", donor.NIC)
	assert.Equal(t, "0779876543", donor.Phone)
	assert.True(t, security.CheckPassword(donor.PasswordHash, "Str0ng!pass"))
	assert.Equal(t, []string{"username", "email", "nic"}, repo.existsCalls)
	assert.Equal(t, []string{"D002"}, notifier.welcomed)
}

func TestAuthServiceRegisterFirstDonor(t *testing.T) {
	repo := newFakeDonorRepo()
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	req := validRegistration()
	req.Email = ""
	donor, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "D001", donor.DonorID)
	assert.Nil(t, donor.Email)
	assert.Equal(t, []string{"username", "nic"}, repo.existsCalls)
}

func TestAuthServiceRegisterDuplicatesCheckedInOrder(t *testing.T) {
	existing := existingDonor(t)
	cases := []struct {
		name    string
		mutate  func(*models.RegisterDonorRequest)
		message string
	}{
		{"username", func(r *models.RegisterDonorRequest) { r.Username = "alice"; r.NIC = existing.NIC }, "username already exists"},
		{"email", func(r *models.RegisterDonorRequest) { r.Email = "alice@example.com"; r.NIC = existing.NIC }, "email already registered"},
		{"nic", func(r *models.RegisterDonorRequest) { r.NIC = existing.NIC }, "NIC already registered"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeDonorRepo(existing)
			svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())
			req := validRegistration()
			tc.mutate(&req)

			_, err := svc.Register(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrConflict)
			assert.Equal(t, tc.message, appErrors.FromError(err).Message)
			assert.Zero(t, repo.createCalls)
		})
	}
}

func TestAuthServiceRegisterValidationReason(t *testing.T) {
	svc := NewAuthService(newFakeDonorRepo(), nil, nil, zap.NewNop(), testAuthConfig())
	req := validRegistration()
	req.Password = "weakpass1"

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Password must contain at least one uppercase letter", appErr.Message)
}

func TestAuthServiceRegisterRetriesOnIDCollision(t *testing.T) {
	repo := newFakeDonorRepo()
	repo.duplicates = 1
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	donor, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "D001", donor.DonorID)
	assert.Equal(t, 2, repo.createCalls)
}

func TestAuthServiceRegisterGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newFakeDonorRepo()
	repo.duplicates = donorIDAllocationAttempts
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, repo.donors)
}

func TestAuthServiceAuthenticateByUsernameThenEmail(t *testing.T) {
	repo := newFakeDonorRepo(existingDonor(t))
	svc := NewAuthService(repo, nil, nil, zap.NewNop(), testAuthConfig())
	ctx := context.Background()

	donor, err := svc.Authenticate(ctx, "alice", "Secret#123")
	require.NoError(t, err)
	assert.Equal(t, "D001", donor.DonorID)

	donor, err = svc.Authenticate(ctx, "alice@example.com", "Secret#123")
	require.NoError(t, err)
	assert.Equal(t, "D001", donor.DonorID)

	_, errWrongPassword := svc.Authenticate(ctx, "alice", "nope")
	_, errUnknown := svc.Authenticate(ctx, "ghost", "Secret#123")
	require.Error(t, errWrongPassword)
	require.Error(t, errUnknown)
	assert.Equal(t, appErrors.FromError(errWrongPassword).Message, appErrors.FromError(errUnknown).Message)
	assert.ErrorIs(t, errUnknown, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginIssuesDonorToken(t *testing.T) {
	svc := NewAuthService(newFakeDonorRepo(existingDonor(t)), nil, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "Secret#123"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleDonor, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "D001", claims.UserID)
	assert.Equal(t, models.RoleDonor, claims.Role)
	assert.Equal(t, "husma-test", claims.Issuer)
}

func TestAuthServiceAdminLogin(t *testing.T) {
	svc := NewAuthService(newFakeDonorRepo(), nil, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.AdminLogin(context.Background(), models.AdminLoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.AdminLogin(context.Background(), models.AdminLoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.AdminLogin(context.Background(), models.AdminLoginRequest{Username: "root", Password: "admin123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := NewAuthService(newFakeDonorRepo(existingDonor(t)), nil, nil, zap.NewNop(), testAuthConfig())
	resp, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "Secret#123"})
	require.NoError(t, err)

	other := testAuthConfig()
	other.AccessTokenSecret = "different"
	_, err = NewAuthService(nil, nil, nil, nil, other).ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServicePasswordResetNotifiesKnownDonor(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewAuthService(newFakeDonorRepo(existingDonor(t)), notifier, nil, zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.RequestPasswordReset(context.Background(), models.PasswordResetRequest{Identifier: "alice@example.com"}))
	require.NoError(t, svc.RequestPasswordReset(context.Background(), models.PasswordResetRequest{Identifier: "nobody"}))
	assert.Equal(t, []string{"D001"}, notifier.resets)
}
