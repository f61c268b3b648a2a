package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ortelius/tenancy-backend/model"
)

// MemoryStore is an in-process Store for tests and local development.
// A transaction holds the store lock for its whole duration and restores a snapshot on failure.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	orgs  map[string]*model.Organization
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
		orgs:  make(map[string]*model.Organization),
	}
}

// memTx runs operations against the maps of a store whose lock is already held.
type memTx struct {
	s *MemoryStore
}

// RunInTransaction serializes fn against every other store access.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]*model.User, len(s.users))
	for k, u := range s.users {
		users[k] = u.Clone()
	}
	orgs := make(map[string]*model.Organization, len(s.orgs))
	for k, o := range s.orgs {
		orgs[k] = o.Clone()
	}

	if err := fn(ctx, memTx{s: s}); err != nil {
		s.users = users
		s.orgs = orgs
		return err
	}
	return nil
}

func (s *MemoryStore) locked() (memTx, func()) {
	s.mu.Lock()
	return memTx{s: s}, s.mu.Unlock
}

// CreateUser implements UserStore.
func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.CreateUser(ctx, user)
}

// GetUser implements UserStore.
func (s *MemoryStore) GetUser(ctx context.Context, key string) (*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.GetUser(ctx, key)
}

// GetUserByEmail implements UserStore.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.GetUserByEmail(ctx, email)
}

// UpdateUserProfile implements UserStore.
func (s *MemoryStore) UpdateUserProfile(ctx context.Context, user *model.User) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.UpdateUserProfile(ctx, user)
}

// ListUsers implements UserStore.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.ListUsers(ctx)
}

// ListUsersByKeys implements UserStore.
func (s *MemoryStore) ListUsersByKeys(ctx context.Context, keys []string) ([]*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.ListUsersByKeys(ctx, keys)
}

// ListUsersExcluding implements UserStore.
func (s *MemoryStore) ListUsersExcluding(ctx context.Context, keys []string) ([]*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.ListUsersExcluding(ctx, keys)
}

// ListUsersWithMembership implements UserStore.
func (s *MemoryStore) ListUsersWithMembership(ctx context.Context, orgID string) ([]*model.User, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.ListUsersWithMembership(ctx, orgID)
}

// SetUserMembership implements UserStore.
func (s *MemoryStore) SetUserMembership(ctx context.Context, userKey string, m model.UserMembership) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.SetUserMembership(ctx, userKey, m)
}

// RemoveUserMembership implements UserStore.
func (s *MemoryStore) RemoveUserMembership(ctx context.Context, userKey, orgID string) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.RemoveUserMembership(ctx, userKey, orgID)
}

// RemoveMembershipFromAllUsers implements UserStore.
func (s *MemoryStore) RemoveMembershipFromAllUsers(ctx context.Context, orgID string) (int, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.RemoveMembershipFromAllUsers(ctx, orgID)
}

// CreateOrganization implements OrganizationStore.
func (s *MemoryStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.CreateOrganization(ctx, org)
}

// GetOrganization implements OrganizationStore.
func (s *MemoryStore) GetOrganization(ctx context.Context, key string) (*model.Organization, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.GetOrganization(ctx, key)
}

// UpdateOrganization implements OrganizationStore.
func (s *MemoryStore) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.UpdateOrganization(ctx, org)
}

// DeleteOrganization implements OrganizationStore.
func (s *MemoryStore) DeleteOrganization(ctx context.Context, key string) error {
	tx, unlock := s.locked()
	defer unlock()
	return tx.DeleteOrganization(ctx, key)
}

// ListOrganizationsForMember implements OrganizationStore.
func (s *MemoryStore) ListOrganizationsForMember(ctx context.Context, userKey string) ([]*model.Organization, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.ListOrganizationsForMember(ctx, userKey)
}

// AddOrganizationMember implements OrganizationStore.
func (s *MemoryStore) AddOrganizationMember(ctx context.Context, orgKey string, m model.Member) (*model.Organization, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.AddOrganizationMember(ctx, orgKey, m)
}

// RemoveOrganizationMember implements OrganizationStore.
func (s *MemoryStore) RemoveOrganizationMember(ctx context.Context, orgKey, userKey string) (*model.Organization, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.RemoveOrganizationMember(ctx, orgKey, userKey)
}

// SetOrganizationMemberRole implements OrganizationStore.
func (s *MemoryStore) SetOrganizationMemberRole(ctx context.Context, orgKey, userKey string, role model.Role) (*model.Organization, error) {
	tx, unlock := s.locked()
	defer unlock()
	return tx.SetOrganizationMemberRole(ctx, orgKey, userKey, role)
}

// -- lock-held implementations ------------------------------------------------

func (t memTx) CreateUser(_ context.Context, user *model.User) error {
	if _, ok := t.s.users[user.Key]; ok {
		return ErrConflict
	}
	for _, u := range t.s.users {
		if u.Email == user.Email {
			return ErrConflict
		}
	}
	t.s.users[user.Key] = user.Clone()
	return nil
}

func (t memTx) GetUser(_ context.Context, key string) (*model.User, error) {
	u, ok := t.s.users[key]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (t memTx) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range t.s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (t memTx) UpdateUserProfile(_ context.Context, user *model.User) error {
	u, ok := t.s.users[user.Key]
	if !ok {
		return ErrNotFound
	}
	for k, other := range t.s.users {
		if k != user.Key && other.Email == user.Email {
			return ErrConflict
		}
	}
	u.Name = user.Name
	u.Email = user.Email
	u.Description = user.Description
	u.ProfilePicture = user.ProfilePicture
	u.UpdatedAt = user.UpdatedAt
	return nil
}

func (t memTx) ListUsers(_ context.Context) ([]*model.User, error) {
	return t.filterUsers(func(*model.User) bool { return true }), nil
}

func (t memTx) ListUsersByKeys(_ context.Context, keys []string) ([]*model.User, error) {
	set := toSet(keys)
	return t.filterUsers(func(u *model.User) bool { return set[u.Key] }), nil
}

func (t memTx) ListUsersExcluding(_ context.Context, keys []string) ([]*model.User, error) {
	set := toSet(keys)
	return t.filterUsers(func(u *model.User) bool { return !set[u.Key] }), nil
}

func (t memTx) ListUsersWithMembership(_ context.Context, orgID string) ([]*model.User, error) {
	return t.filterUsers(func(u *model.User) bool {
		_, ok := u.MembershipFor(orgID)
		return ok
	}), nil
}

func (t memTx) SetUserMembership(_ context.Context, userKey string, m model.UserMembership) error {
	u, ok := t.s.users[userKey]
	if !ok {
		return ErrNotFound
	}
	replaced := false
	for i := range u.Organizations {
		if u.Organizations[i].OrganizationID == m.OrganizationID {
			u.Organizations[i] = m
			replaced = true
		}
	}
	if !replaced {
		u.Organizations = append(u.Organizations, m)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (t memTx) RemoveUserMembership(_ context.Context, userKey, orgID string) error {
	u, ok := t.s.users[userKey]
	if !ok {
		return nil
	}
	u.Organizations = withoutOrg(u.Organizations, orgID)
	return nil
}

func (t memTx) RemoveMembershipFromAllUsers(_ context.Context, orgID string) (int, error) {
	changed := 0
	for _, u := range t.s.users {
		if _, ok := u.MembershipFor(orgID); ok {
			u.Organizations = withoutOrg(u.Organizations, orgID)
			u.UpdatedAt = time.Now().UTC()
			changed++
		}
	}
	return changed, nil
}

func (t memTx) CreateOrganization(_ context.Context, org *model.Organization) error {
	if _, ok := t.s.orgs[org.Key]; ok {
		return ErrConflict
	}
	t.s.orgs[org.Key] = org.Clone()
	return nil
}

func (t memTx) GetOrganization(_ context.Context, key string) (*model.Organization, error) {
	o, ok := t.s.orgs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (t memTx) UpdateOrganization(_ context.Context, org *model.Organization) error {
	o, ok := t.s.orgs[org.Key]
	if !ok {
		return ErrNotFound
	}
	o.Name = org.Name
	o.Description = org.Description
	o.Logo = org.Logo
	o.UpdatedAt = org.UpdatedAt
	return nil
}

func (t memTx) DeleteOrganization(_ context.Context, key string) error {
	if _, ok := t.s.orgs[key]; !ok {
		return ErrNotFound
	}
	delete(t.s.orgs, key)
	return nil
}

func (t memTx) ListOrganizationsForMember(_ context.Context, userKey string) ([]*model.Organization, error) {
	var out []*model.Organization
	for _, o := range t.s.orgs {
		if _, ok := o.Member(userKey); ok {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].Key, out[j].Key) })
	return out, nil
}

func (t memTx) AddOrganizationMember(_ context.Context, orgKey string, m model.Member) (*model.Organization, error) {
	o, ok := t.s.orgs[orgKey]
	if !ok {
		return nil, ErrNotFound
	}
	if _, exists := o.Member(m.UserID); exists {
		return nil, ErrAlreadyMember
	}
	o.Members = append(o.Members, m)
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (t memTx) RemoveOrganizationMember(_ context.Context, orgKey, userKey string) (*model.Organization, error) {
	o, ok := t.s.orgs[orgKey]
	if !ok {
		return nil, ErrNotFound
	}
	members := make([]model.Member, 0, len(o.Members))
	for _, m := range o.Members {
		if m.UserID != userKey {
			members = append(members, m)
		}
	}
	o.Members = members
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (t memTx) SetOrganizationMemberRole(_ context.Context, orgKey, userKey string, role model.Role) (*model.Organization, error) {
	o, ok := t.s.orgs[orgKey]
	if !ok {
		return nil, ErrNotFound
	}
	found := false
	for i := range o.Members {
		if o.Members[i].UserID == userKey {
			o.Members[i].Role = role
			found = true
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (t memTx) filterUsers(keep func(*model.User) bool) []*model.User {
	var out []*model.User
	for _, u := range t.s.users {
		if keep(u) {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].Key, out[j].Key) })
	return out
}

func createdBefore(a, b time.Time, keyA, keyB string) bool {
	if a.Equal(b) {
		return keyA < keyB
	}
	return a.Before(b)
}

func withoutOrg(entries []model.UserMembership, orgID string) []model.UserMembership {
	out := make([]model.UserMembership, 0, len(entries))
	for _, e := range entries {
		if e.OrganizationID != orgID {
			out = append(out, e)
		}
	}
	return out
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
