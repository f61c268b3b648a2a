package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ortelius/tenancy-backend/database"
	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sample = `
users:
  - name: Ann
    email: ann@example.com
    password: ann-pass
  - name: Bob
    email: bob@example.com
    password: bob-pass
organizations:
  - name: Acme
    description: Widgets
    owner: ann@example.com
    members:
      - email: bob@example.com
        role: Admin
`

func newApplier(t *testing.T) (*Applier, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	tokens, err := security.NewTokenService([]byte("k"), "t", time.Hour)
	require.NoError(t, err)
	logger := zap.NewNop()
	return &Applier{
		Accounts:    services.NewAccounts(store, security.NewHasher(bcrypt.MinCost), tokens, logger),
		Coordinator: services.NewCoordinator(store, logger),
		Lookup:      store.GetUserByEmail,
		Logger:      logger,
	}, store
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Users, 2)

	a, store := newApplier(t)
	ctx := context.Background()

	result, err := a.Apply(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, result.CreatedUsers)
	assert.Equal(t, []string{"Acme"}, result.CreatedOrganizations)
	assert.Len(t, result.AddedMembers, 1)

	bob, err := store.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, bob.Organizations, 1)
	assert.Equal(t, model.RoleAdmin, bob.Organizations[0].Role)

	// second run is a no-op
	result, err = a.Apply(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.CreatedUsers)
	assert.Empty(t, result.CreatedOrganizations)
	assert.Empty(t, result.AddedMembers)
	assert.Empty(t, result.Errors)

	ann, err := store.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	orgs, err := store.ListOrganizationsForMember(ctx, ann.Key)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field": "users:\n  - name: a\n    email: a@example.com\n    password: x\n    admin: true\n",
		"bad email":     "users:\n  - name: a\n    email: nope\n    password: x\n",
		"duplicate":     "users:\n  - {name: a, email: a@example.com, password: x}\n  - {name: b, email: a@example.com, password: y}\n",
		"bad role":      "organizations:\n  - {name: o, description: d, owner: a@example.com, members: [{email: b@example.com, role: boss}]}\n",
		"owner member":  "organizations:\n  - {name: o, description: d, owner: a@example.com, members: [{email: b@example.com, role: owner}]}\n",
		"no owner":      "organizations:\n  - {name: o, description: d}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApply_MissingOwner(t *testing.T) {
	cfg, err := Parse([]byte("organizations:\n  - {name: o, description: d, owner: ghost@example.com}\n"))
	require.NoError(t, err)

	a, _ := newApplier(t)
	result, err := a.Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, result.Errors, 1)
}
