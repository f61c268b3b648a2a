package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/tenancy-backend/database"
	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/ortelius/tenancy-backend/restapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t     *testing.T
	app   *fiber.App
	store *database.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := database.NewMemoryStore()
	tokens, err := security.NewTokenService([]byte("test-secret"), "tenancy-test", time.Hour)
	require.NoError(t, err)
	logger := zap.NewNop()

	app, err := NewFiberApp(restapi.Deps{
		Accounts:    services.NewAccounts(store, security.NewHasher(bcrypt.MinCost), tokens, logger),
		Coordinator: services.NewCoordinator(store, logger),
		Logger:      logger,
	}, Options{AppName: "test", CORSOrigins: "*", RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return &testServer{t: t, app: app, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) register(name, email string) (string, string) {
	s.t.Helper()
	status, env := s.do("POST", "/auth/register", "", fiber.Map{"name": name, "email": email, "password": "secret-" + name})
	require.Equal(s.t, fiber.StatusCreated, status, env.Error)

	var payload model.AuthPayload
	require.NoError(s.t, json.Unmarshal(env.Data, &payload))
	require.NotEmpty(s.t, payload.Token)
	return payload.User.ID, payload.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do("GET", "/", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Server is running", env.Message)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("ann", "ann@example.com")

	status, env := s.do("POST", "/auth/register", "", fiber.Map{"name": "ann2", "email": "ann@example.com", "password": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, env = s.do("POST", "/auth/register", "", fiber.Map{"name": "bad", "email": "not-an-email", "password": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.do("POST", "/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	wrongPassword := env.Error

	status, env = s.do("POST", "/auth/login", "", fiber.Map{"email": "ghost@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, wrongPassword, env.Error)

	status, env = s.do("POST", "/auth/login", "", fiber.Map{"email": "ann@example.com", "password": "secret-ann"})
	require.Equal(t, fiber.StatusOK, status)
	payload := decode[model.AuthPayload](t, env.Data)
	assert.NotEmpty(t, payload.Token)
	assert.NotContains(t, string(env.Data), "password")

	status, env = s.do("GET", "/auth/profile", payload.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ann@example.com", decode[model.UserView](t, env.Data).Email)
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do("GET", "/auth/profile", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = s.do("GET", "/auth/profile", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do("POST", "/organizations", "", fiber.Map{"name": "x", "description": "y"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	_, annToken := s.register("ann", "ann@example.com")
	s.register("bob", "bob@example.com")

	status, env := s.do("PUT", "/auth/profile", annToken, fiber.Map{"email": "bob@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, "already in use")

	status, env = s.do("PUT", "/auth/profile", annToken, fiber.Map{"description": "hello"})
	require.Equal(t, fiber.StatusOK, status)
	view := decode[model.UserView](t, env.Data)
	assert.Equal(t, "hello", view.Description)
	assert.Equal(t, "ann", view.Name)
}

func TestOrganizationLifecycle(t *testing.T) {
	s := newTestServer(t)
	annID, annToken := s.register("ann", "ann@example.com")
	bobID, bobToken := s.register("bob", "bob@example.com")
	carlID, carlToken := s.register("carl", "carl@example.com")

	status, env := s.do("POST", "/organizations", annToken, fiber.Map{"name": "  Acme ", "description": "Widgets"})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	org := decode[model.OrganizationView](t, env.Data)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, annID, org.Owner)
	base := "/organizations/" + org.ID

	status, _ = s.do("POST", "/organizations", annToken, fiber.Map{"name": " ", "description": "Widgets"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// non-members are forbidden
	status, _ = s.do("GET", base, bobToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do("GET", "/auth/organizations/"+org.ID+"/remaining-users", annToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]model.UserView](t, env.Data), 2)

	status, env = s.do("POST", base+"/users/"+bobID, annToken, fiber.Map{"action": "add", "role": "Admin"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env = s.do("POST", base+"/users/"+bobID, annToken, fiber.Map{"action": "add", "role": "member"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, "already a member")

	status, _ = s.do("POST", base+"/users/"+carlID, bobToken, fiber.Map{"action": "add", "role": "boss"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do("POST", base+"/users/"+carlID, bobToken, fiber.Map{"action": "promote"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.do("POST", base+"/users/"+carlID, bobToken, fiber.Map{"action": "add", "role": "member"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env = s.do("GET", base+"/members", carlToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]model.MemberProfile](t, env.Data), 3)

	// members cannot manage
	status, _ = s.do("PUT", base, carlToken, fiber.Map{"name": "Evil"})
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do("DELETE", base+"/users/"+bobID, carlToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	// the owner cannot be demoted or removed
	status, _ = s.do("PUT", base+"/users/"+annID+"/role", bobToken, fiber.Map{"role": "member"})
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do("DELETE", base+"/users/"+annID, bobToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do("PUT", base+"/users/"+carlID+"/role", bobToken, fiber.Map{"role": "ADMIN"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env = s.do("PUT", base, carlToken, fiber.Map{"description": "Gadgets"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, "Gadgets", decode[model.OrganizationView](t, env.Data).Description)

	status, env = s.do("POST", base+"/users/"+carlID, bobToken, fiber.Map{"action": "remove"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	carl, err := s.store.GetUser(t.Context(), carlID)
	require.NoError(t, err)
	assert.Empty(t, carl.Organizations)

	// admins cannot delete
	status, _ = s.do("DELETE", base, bobToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do("GET", "/organizations/all", bobToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]model.OrganizationView](t, env.Data), 1)

	status, env = s.do("DELETE", base, annToken, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)

	for _, id := range []string{annID, bobID} {
		u, err := s.store.GetUser(t.Context(), id)
		require.NoError(t, err)
		assert.Empty(t, u.Organizations)
	}

	status, env = s.do("GET", "/organizations/all", annToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, decode[[]model.OrganizationView](t, env.Data))
}

func TestGraphQL(t *testing.T) {
	s := newTestServer(t)
	annID, annToken := s.register("ann", "ann@example.com")
	_, bobToken := s.register("bob", "bob@example.com")

	status, env := s.do("POST", "/organizations", annToken, fiber.Map{"name": "Acme", "description": "Widgets"})
	require.Equal(t, fiber.StatusCreated, status)
	org := decode[model.OrganizationView](t, env.Data)

	query := func(token, q string) map[string]interface{} {
		raw, _ := json.Marshal(fiber.Map{"query": q})
		req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	out := query(annToken, `{ me { id email organizations { organizationId role } } members(organizationId: "`+org.ID+`") { userId role } }`)
	require.Nil(t, out["errors"])
	data := out["data"].(map[string]interface{})
	me := data["me"].(map[string]interface{})
	assert.Equal(t, annID, me["id"])
	memberships := me["organizations"].([]interface{})
	require.Len(t, memberships, 1)
	assert.Equal(t, "owner", memberships[0].(map[string]interface{})["role"])
	assert.Len(t, data["members"], 1)

	out = query(bobToken, `{ organization(id: "`+org.ID+`") { name } }`)
	assert.NotNil(t, out["errors"])
}

func TestMembershipIDsSurviveLaterRequests(t *testing.T) {
	s := newTestServer(t)
	_, annToken := s.register("ann", "ann@example.com")
	bobID, _ := s.register("bob", "bob@example.com")

	status, env := s.do("POST", "/organizations", annToken, fiber.Map{"name": "Acme", "description": "Widgets"})
	require.Equal(t, fiber.StatusCreated, status)
	org := decode[model.OrganizationView](t, env.Data)
	base := "/organizations/" + org.ID

	status, env = s.do("POST", base+"/users/"+bobID, annToken, fiber.Map{"action": "add", "role": "member"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	// same path length as the add above, different user id
	other := "00000000-0000-0000-0000-000000000000"
	require.Len(t, other, len(bobID))
	status, _ = s.do("DELETE", base+"/users/"+other, annToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do("POST", base+"/users/"+other, annToken, fiber.Map{"action": "add", "role": "member"})
	require.Equal(t, fiber.StatusNotFound, status)

	stored, err := s.store.GetOrganization(t.Context(), org.ID)
	require.NoError(t, err)
	member, ok := stored.Member(bobID)
	require.True(t, ok, "bob must still be in the member list")
	assert.Equal(t, model.RoleMember, member.Role)

	bob, err := s.store.GetUser(t.Context(), bobID)
	require.NoError(t, err)
	entry, ok := bob.MembershipFor(org.ID)
	require.True(t, ok)
	assert.Equal(t, model.RoleMember, entry.Role)

	users, err := s.store.ListUsersWithMembership(t.Context(), org.ID)
	require.NoError(t, err)
	assert.Len(t, users, len(stored.Members))
}
