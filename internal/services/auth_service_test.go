package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
)

func newAuthService(t *testing.T, inviteToken string) *AuthService {
	db := newTestDB(t)
	return NewAuthService(repository.NewUserRepository(db), AuthConfig{
		JWTSecret:        "test-secret",
		TokenTTL:         time.Hour,
		AdminInviteToken: inviteToken,
		Timeout:          time.Second,
	})
}

func TestSignup_FirstUserBecomesAdmin(t *testing.T) {
	service := newAuthService(t, "")
	ctx := context.Background()

	first, err := service.Signup(ctx, SignupInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, "alice", first.Name)
	assert.NotEqual(t, "password123", first.PasswordHash)

	second, err := service.Signup(ctx, SignupInput{Username: "bob", Name: "Bob", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, second.Role)

	_, err = service.Signup(ctx, SignupInput{Username: "bob", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignup_Validation(t *testing.T) {
	service := newAuthService(t, "")
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupInput{Username: " ", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameRequired)

	_, err = service.Signup(ctx, SignupInput{Username: "carol", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSignup_AdminInviteToken(t *testing.T) {
	service := newAuthService(t, "let-me-in")
	ctx := context.Background()

	member, err := service.Signup(ctx, SignupInput{Username: "first", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, member.Role)

	_, err = service.Signup(ctx, SignupInput{Username: "guess", Password: "password123", AdminInviteToken: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidInviteToken)

	admin, err := service.Signup(ctx, SignupInput{Username: "boss", Password: "password123", AdminInviteToken: "let-me-in"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestLogin_IssuesParsableToken(t *testing.T) {
	service := newAuthService(t, "")
	ctx := context.Background()

	user, err := service.Signup(ctx, SignupInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, _, err = service.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = service.Login(ctx, LoginInput{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, token, err := service.Login(ctx, LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	actor, err := service.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)
	assert.True(t, actor.IsAdmin())
}

func TestParseToken_Rejects(t *testing.T) {
	service := newAuthService(t, "")
	user := &models.User{ID: 9, Role: models.RoleMember}

	token, err := service.IssueToken(user)
	require.NoError(t, err)

	other := newAuthService(t, "")
	other.cfg.JWTSecret = "another-secret"
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
