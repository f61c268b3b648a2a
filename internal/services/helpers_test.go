package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ortelius/tenancy-backend/database"
	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.MembershipEvent
}

func (p *recordingPublisher) PublishMembershipEvent(_ context.Context, e model.MembershipEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store       *database.MemoryStore
	accounts    *Accounts
	coordinator *Coordinator
	tokens      *security.TokenService
	events      *recordingPublisher
}

func newFixture(t *testing.T, opts ...CoordinatorOption) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	tokens, err := security.NewTokenService([]byte("test-secret"), "tenancy-test", time.Hour)
	require.NoError(t, err)
	events := &recordingPublisher{}
	logger := zap.NewNop()
	opts = append([]CoordinatorOption{WithEventPublisher(events)}, opts...)
	return &fixture{
		store:       store,
		accounts:    NewAccounts(store, security.NewHasher(bcrypt.MinCost), tokens, logger),
		coordinator: NewCoordinator(store, logger, opts...),
		tokens:      tokens,
		events:      events,
	}
}

func (f *fixture) register(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), name, name+"@example.com", "pw-"+name)
	require.NoError(t, err)
	return u
}

func (f *fixture) reload(t *testing.T, userID string) *model.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u
}

// requireConsistent checks that both projections describe the same set of pairs.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	users, err := f.store.ListUsers(ctx)
	require.NoError(t, err)

	fromUsers := map[[2]string]model.Role{}
	for _, u := range users {
		seen := map[string]bool{}
		for _, m := range u.Organizations {
			require.False(t, seen[m.OrganizationID], "duplicate entry for %s on %s", m.OrganizationID, u.Key)
			seen[m.OrganizationID] = true
			fromUsers[[2]string{m.OrganizationID, u.Key}] = m.Role
		}
	}

	fromOrgs := map[[2]string]model.Role{}
	for _, u := range users {
		orgs, err := f.store.ListOrganizationsForMember(ctx, u.Key)
		require.NoError(t, err)
		for _, o := range orgs {
			m, _ := o.Member(u.Key)
			fromOrgs[[2]string{o.Key, u.Key}] = m.Role
		}
	}
	require.Equal(t, fromOrgs, fromUsers)
}
