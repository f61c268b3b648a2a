package services

import (
	"context"
	"testing"
	"time"

	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, "  Ann ", "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Empty(t, u.Organizations)
	assert.NotEqual(t, "secret", u.PasswordHash)
	assert.NotEmpty(t, u.Key)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name, userName, email, password string
	}{
		{name: "missing name", email: "a@example.com", password: "x"},
		{name: "blank name", userName: "  ", email: "a@example.com", password: "x"},
		{name: "missing email", userName: "a", password: "x"},
		{name: "missing password", userName: "a", email: "a@example.com"},
		{name: "no at", userName: "a", email: "example.com", password: "x"},
		{name: "no dot", userName: "a", email: "a@example", password: "x"},
		{name: "whitespace", userName: "a", email: "a b@example.com", password: "x"},
		{name: "long password", userName: "a", email: "a@example.com", password: string(make([]byte, 73))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Register(context.Background(), tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Register(ctx, "a", "a@example.com", "x")
	require.NoError(t, err)

	_, err = f.accounts.Register(ctx, "b", "a@example.com", "y")
	assert.ErrorIs(t, err, ErrConflict)

	// exact-match semantics
	_, err = f.accounts.Register(ctx, "c", "A@example.com", "z")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.accounts.Register(ctx, "a", "a@example.com", "correct")
	require.NoError(t, err)

	u, token, exp, err := f.accounts.Login(ctx, "a@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, registered.Key, u.Key)
	assert.True(t, exp.After(time.Now()))

	userID, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.Key, userID)
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Register(ctx, "a", "a@example.com", "correct")
	require.NoError(t, err)

	_, _, _, wrongPassword := f.accounts.Login(ctx, "a@example.com", "wrong")
	_, _, _, unknownEmail := f.accounts.Login(ctx, "nobody@example.com", "correct")

	require.ErrorIs(t, wrongPassword, ErrUnauthenticated)
	require.ErrorIs(t, unknownEmail, ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "ann")
	token, _, err := f.accounts.IssueToken(u)
	require.NoError(t, err)

	got, err := f.accounts.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, u.Key, got.Key)

	got, err = f.accounts.Authenticate(ctx, "bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, u.Key, got.Key)

	for _, header := range []string{"", "Bearer", "Bearer ", token, "Basic " + token, "Bearer garbage"} {
		_, err := f.accounts.Authenticate(ctx, header)
		assert.ErrorIs(t, err, ErrUnauthenticated, header)
	}
}

func TestAuthenticate_UserGone(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.Issue("deleted-user")
	require.NoError(t, err)

	_, err = f.accounts.Authenticate(context.Background(), "Bearer "+token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticate_ForeignToken(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ann")
	other, err := security.NewTokenService([]byte("other-secret"), "tenancy-test", time.Hour)
	require.NoError(t, err)
	token, _, err := other.Issue(u.Key)
	require.NoError(t, err)

	_, err = f.accounts.Authenticate(context.Background(), "Bearer "+token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.register(t, "ann")
	f.register(t, "bob")

	desc := "platform team"
	updated, err := f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "platform team", updated.Description)
	assert.Equal(t, "ann", updated.Name)
	assert.Equal(t, "ann@example.com", updated.Email)

	taken := "bob@example.com"
	_, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	bad := "not-an-email"
	_, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Email: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	same := "ann@example.com"
	_, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Email: &same})
	assert.NoError(t, err)

	fresh := "ann@corp.example.com"
	name := "Ann B"
	updated, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Email: &fresh, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "ann@corp.example.com", updated.Email)
	assert.Equal(t, "platform team", f.reload(t, ann.Key).Description)

	empty := ""
	updated, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Description: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
	assert.Equal(t, "Ann B", updated.Name)

	_, err = f.accounts.UpdateProfile(ctx, ann.Key, model.ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.accounts.UpdateProfile(ctx, "missing", model.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNonMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.register(t, "ann")
	bob := f.register(t, "bob")
	cat := f.register(t, "cat")

	org, err := f.coordinator.CreateOrganization(ctx, ann.Key, model.OrganizationAttributes{Name: "Acme", Description: "d"})
	require.NoError(t, err)
	_, err = f.coordinator.AddMember(ctx, org.Key, bob.Key, "member")
	require.NoError(t, err)

	rest, err := f.accounts.ListNonMembers(ctx, org.Key)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, cat.Key, rest[0].Key)

	_, err = f.accounts.ListNonMembers(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := f.accounts.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
