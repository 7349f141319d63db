package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixclub/music-league/models"
)

const testJWTSecret = "test-secret"

func newAuthFixture() (*fakeUserRepo, AuthService) {
	users := newFakeUserRepo()
	return users, NewAuthService(users, testJWTSecret, testLogger())
}

func validSignup() SignupInput {
	return SignupInput{Email: "alice@example.com", Name: "Alice", Password: "correct horse"}
}

func TestSignup(t *testing.T) {
	_, svc := newAuthFixture()

	user, tokens, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	require.NotNil(t, tokens)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
}

func TestSignupValidation(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	input := validSignup()
	input.Email = "not-an-email"
	_, _, err := svc.Signup(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	input = validSignup()
	input.Password = "short"
	_, _, err = svc.Signup(ctx, input)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSignupEmailTaken(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, validSignup())
	assert.ErrorIs(t, err, ErrAuthEmailTaken)
}

func TestLogin(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	user, tokens, err := svc.Login(ctx, models.Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.PasswordHash, "password hash must not leak out of the service")
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, models.Credentials{Email: "alice@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	// Неизвестный email дает ту же ошибку, без утечки существования аккаунта.
	_, _, err = svc.Login(ctx, models.Credentials{Email: "bob@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	users, svc := newAuthFixture()
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	users.users[user.ID].IsActive = false

	_, _, err = svc.Login(ctx, models.Credentials{Email: "alice@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestRefresh(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, tokens, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	renewed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.AccessToken)
	assert.NotEmpty(t, renewed.RefreshToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, tokens, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	// Access-токен не годится для продления сессии.
	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	_, svc := newAuthFixture()

	_, err := svc.Refresh(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsForeignSignature(t *testing.T) {
	_, svc := newAuthFixture()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"kind":    "refresh",
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
