package identity

import (
	"context"
	"testing"
	"time"

	domainidentity "github.com/fiscaldesk/backend/internal/domain/identity"
	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/fiscaldesk/backend/internal/infrastructure/auth"
	"github.com/fiscaldesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainidentity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainidentity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domainidentity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainidentity.User), args.Error(1)
}

func (m *MockUserRepository) FindAdminByOrganization(ctx context.Context, organizationID uuid.UUID) (*domainidentity.User, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainidentity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domainidentity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "fiscaldesk-test",
		MaxRefreshCount:        3,
	})
}

func newTestAuthService(t *testing.T) (*AuthService, *MockUserRepository, *auth.InMemoryTokenBlacklist) {
	t.Helper()
	users := new(MockUserRepository)
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc := NewAuthService(users, newTestJWTService(), blacklist, zap.NewNop())
	return svc, users, blacklist
}

func testUser(t *testing.T, password string) *domainidentity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domainidentity.User{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(uuid.New()),
		Username:         "maria.silva",
		Email:            "maria@acme.pt",
		PasswordHash:     string(hash),
		DisplayName:      "Maria Silva",
		Role:             domainidentity.RoleAdmin,
		IBAN:             "PT50000201231234567890154",
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login returns token pair and user info", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")

		users.On("FindByUsername", ctx, "maria.silva").Return(user, nil)
		users.On("Save", ctx, user).Return(nil)

		result, err := svc.Login(ctx, LoginInput{Username: "maria.silva", Password: "correct-horse"})
		require.NoError(t, err)

		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, user.OrganizationID, result.User.OrganizationID)
		assert.Equal(t, "Maria Silva", result.User.DisplayName)
		assert.Equal(t, "admin", result.User.Role)
		assert.True(t, result.User.HasIBAN)
		assert.NotNil(t, user.LastLoginAt)

		claims, err := newTestJWTService().ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, user.OrganizationID.String(), claims.OrganizationID)
	})

	t.Run("unknown username yields invalid credentials", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		users.On("FindByUsername", ctx, "ghost").Return(nil, nil)

		_, err := svc.Login(ctx, LoginInput{Username: "ghost", Password: "whatever"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})

	t.Run("wrong password yields invalid credentials", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		users.On("FindByUsername", ctx, "maria.silva").Return(user, nil)

		_, err := svc.Login(ctx, LoginInput{Username: "maria.silva", Password: "wrong"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
		users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("login succeeds even when saving login timestamp fails", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		users.On("FindByUsername", ctx, "maria.silva").Return(user, nil)
		users.On("Save", ctx, user).Return(assert.AnError)

		result, err := svc.Login(ctx, LoginInput{Username: "maria.silva", Password: "correct-horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, svc *AuthService, users *MockUserRepository, user *domainidentity.User) *LoginResult {
		t.Helper()
		users.On("FindByUsername", ctx, user.Username).Return(user, nil).Once()
		users.On("Save", ctx, user).Return(nil).Once()
		result, err := svc.Login(ctx, LoginInput{Username: user.Username, Password: "correct-horse"})
		require.NoError(t, err)
		return result
	}

	t.Run("valid refresh token rotates the pair", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		loginResult := login(t, svc, users, user)

		users.On("FindByID", ctx, user.ID).Return(user, nil)

		result, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: loginResult.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEqual(t, loginResult.RefreshToken, result.RefreshToken)
	})

	t.Run("garbage token yields token invalid", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)

		_, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: "not-a-jwt"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})

	t.Run("revoked user sessions reject the refresh token", func(t *testing.T) {
		svc, users, blacklist := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		loginResult := login(t, svc, users, user)

		require.NoError(t, blacklist.AddUserTokensToBlacklist(ctx, user.ID.String(), time.Hour))

		_, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: loginResult.RefreshToken})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})

	t.Run("deleted user cannot refresh", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		loginResult := login(t, svc, users, user)

		users.On("FindByID", ctx, user.ID).Return(nil, nil)

		_, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: loginResult.RefreshToken})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "USER_NOT_FOUND", domainErr.Code)
	})

	t.Run("refresh chain is bounded", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		loginResult := login(t, svc, users, user)

		users.On("FindByID", ctx, user.ID).Return(user, nil)

		refreshToken := loginResult.RefreshToken
		for i := 0; i < 3; i++ {
			result, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: refreshToken})
			require.NoError(t, err)
			refreshToken = result.RefreshToken
		}

		_, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: refreshToken})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_MAX_REFRESH", domainErr.Code)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("blacklists the access token jti", func(t *testing.T) {
		svc, _, blacklist := newTestAuthService(t)

		err := svc.Logout(ctx, LogoutInput{
			UserID:    uuid.New(),
			AccessJTI: "jti-logout",
			AccessTTL: time.Minute,
		})
		require.NoError(t, err)

		blacklisted, err := blacklist.IsBlacklisted(ctx, "jti-logout")
		require.NoError(t, err)
		assert.True(t, blacklisted)
	})

	t.Run("all sessions invalidates previously issued tokens", func(t *testing.T) {
		svc, _, blacklist := newTestAuthService(t)
		userID := uuid.New()
		issuedEarlier := time.Now().Add(-time.Minute)

		err := svc.Logout(ctx, LogoutInput{
			UserID:      userID,
			AllSessions: true,
		})
		require.NoError(t, err)

		invalid, err := blacklist.IsUserTokenInvalidated(ctx, userID.String(), issuedEarlier)
		require.NoError(t, err)
		assert.True(t, invalid)
	})
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns user info", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		user := testUser(t, "correct-horse")
		users.On("FindByID", ctx, user.ID).Return(user, nil)

		info, err := svc.GetCurrentUser(ctx, GetCurrentUserInput{UserID: user.ID})
		require.NoError(t, err)
		assert.Equal(t, "maria.silva", info.Username)
		assert.Equal(t, "maria@acme.pt", info.Email)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		id := uuid.New()
		users.On("FindByID", ctx, id).Return(nil, nil)

		_, err := svc.GetCurrentUser(ctx, GetCurrentUserInput{UserID: id})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "USER_NOT_FOUND", domainErr.Code)
	})
}
