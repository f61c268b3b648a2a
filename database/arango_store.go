package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

// querier is satisfied by both arangodb.Database and arangodb.Transaction.
type querier interface {
	Query(ctx context.Context, query string, opts *arangodb.QueryOptions) (arangodb.Cursor, error)
}

// ArangoStore implements Store on top of the users and orgs collections.
type ArangoStore struct {
	db     arangodb.Database
	q      querier
	logger *zap.Logger
}

// NewArangoStore wraps an initialized connection.
func NewArangoStore(conn *DBConnection, logger *zap.Logger) *ArangoStore {
	return &ArangoStore{db: conn.Database, q: conn.Database, logger: logger}
}

// RunInTransaction runs fn inside an ArangoDB stream transaction that write-locks users and orgs.
func (s *ArangoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	trx, err := s.db.BeginTransaction(ctx, arangodb.TransactionCollections{
		Write: []string{UsersCollection, OrgsCollection},
	}, &arangodb.BeginTransactionOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, &ArangoStore{db: s.db, q: trx, logger: s.logger}); err != nil {
		// Use a fresh context so an expired request deadline does not leave the transaction open.
		abortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if abortErr := trx.Abort(abortCtx, &arangodb.AbortTransactionOptions{}); abortErr != nil {
			s.logger.Warn("Failed to abort transaction", zap.Error(abortErr))
		}
		return err
	}

	if err := trx.Commit(ctx, &arangodb.CommitTransactionOptions{}); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// -- users --------------------------------------------------------------------

// CreateUser inserts a new user document. A duplicate email yields ErrConflict.
func (s *ArangoStore) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT @doc INTO users`
	if err := s.exec(ctx, query, map[string]interface{}{"doc": user}); err != nil {
		if shared.IsConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetUser fetches a user by key
func (s *ArangoStore) GetUser(ctx context.Context, key string) (*model.User, error) {
	query := `
		FOR u IN users
			FILTER u._key == @key
			LIMIT 1
			RETURN u
	`
	return queryOne[model.User](ctx, s.q, query, map[string]interface{}{"key": key})
}

// GetUserByEmail fetches a user by exact email
func (s *ArangoStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		FOR u IN users
			FILTER u.email == @email
			LIMIT 1
			RETURN u
	`
	return queryOne[model.User](ctx, s.q, query, map[string]interface{}{"email": email})
}

// UpdateUserProfile writes the editable profile fields of user.
func (s *ArangoStore) UpdateUserProfile(ctx context.Context, user *model.User) error {
	query := `
		FOR u IN users
			FILTER u._key == @key
			UPDATE u WITH {
				name: @name,
				email: @email,
				description: @description,
				profile_picture: @picture,
				updated_at: @now
			} IN users
			RETURN NEW._key
	`
	keys, err := queryAll[string](ctx, s.q, query, map[string]interface{}{
		"key":         user.Key,
		"name":        user.Name,
		"email":       user.Email,
		"description": user.Description,
		"picture":     user.ProfilePicture,
		"now":         user.UpdatedAt,
	})
	if err != nil {
		if shared.IsConflict(err) {
			return ErrConflict
		}
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all users ordered by creation time
func (s *ArangoStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `
		FOR u IN users
			SORT u.created_at ASC
			RETURN u
	`
	return queryAll[*model.User](ctx, s.q, query, nil)
}

// ListUsersByKeys returns the users with the given keys
func (s *ArangoStore) ListUsersByKeys(ctx context.Context, keys []string) ([]*model.User, error) {
	query := `
		FOR u IN users
			FILTER u._key IN @keys
			RETURN u
	`
	return queryAll[*model.User](ctx, s.q, query, map[string]interface{}{"keys": nonNil(keys)})
}

// ListUsersExcluding returns every user whose key is not in keys
func (s *ArangoStore) ListUsersExcluding(ctx context.Context, keys []string) ([]*model.User, error) {
	query := `
		FOR u IN users
			FILTER u._key NOT IN @keys
			SORT u.created_at ASC
			RETURN u
	`
	return queryAll[*model.User](ctx, s.q, query, map[string]interface{}{"keys": nonNil(keys)})
}

// ListUsersWithMembership returns users holding an entry for orgID
func (s *ArangoStore) ListUsersWithMembership(ctx context.Context, orgID string) ([]*model.User, error) {
	query := `
		FOR u IN users
			FILTER @org IN u.organizations[*].organization_id
			RETURN u
	`
	return queryAll[*model.User](ctx, s.q, query, map[string]interface{}{"org": orgID})
}

// SetUserMembership replaces the entry for the organization in place, or appends it.
func (s *ArangoStore) SetUserMembership(ctx context.Context, userKey string, m model.UserMembership) error {
	query := `
		FOR u IN users
			FILTER u._key == @key
			LET current = u.organizations || []
			LET next = @org IN current[*].organization_id
				? (FOR e IN current RETURN e.organization_id == @org ? @membership : e)
				: PUSH(current, @membership)
			UPDATE u WITH { organizations: next, updated_at: @now } IN users
			RETURN NEW._key
	`
	keys, err := queryAll[string](ctx, s.q, query, map[string]interface{}{
		"key":        userKey,
		"org":        m.OrganizationID,
		"membership": m,
		"now":        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveUserMembership drops the user's entry for orgID
func (s *ArangoStore) RemoveUserMembership(ctx context.Context, userKey, orgID string) error {
	query := `
		FOR u IN users
			FILTER u._key == @key AND @org IN u.organizations[*].organization_id
			UPDATE u WITH {
				organizations: (FOR e IN u.organizations FILTER e.organization_id != @org RETURN e),
				updated_at: @now
			} IN users
	`
	return s.exec(ctx, query, map[string]interface{}{
		"key": userKey,
		"org": orgID,
		"now": time.Now().UTC(),
	})
}

// RemoveMembershipFromAllUsers drops orgID from every user projection
func (s *ArangoStore) RemoveMembershipFromAllUsers(ctx context.Context, orgID string) (int, error) {
	query := `
		LET changed = (
			FOR u IN users
				FILTER @org IN u.organizations[*].organization_id
				UPDATE u WITH {
					organizations: (FOR e IN u.organizations FILTER e.organization_id != @org RETURN e),
					updated_at: @now
				} IN users
				RETURN 1
		)
		RETURN LENGTH(changed)
	`
	counts, err := queryAll[int](ctx, s.q, query, map[string]interface{}{
		"org": orgID,
		"now": time.Now().UTC(),
	})
	if err != nil || len(counts) == 0 {
		return 0, err
	}
	return counts[0], nil
}

// -- organizations ------------------------------------------------------------

// CreateOrganization inserts a new organization document
func (s *ArangoStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return s.exec(ctx, `INSERT @doc INTO orgs`, map[string]interface{}{"doc": org})
}

// GetOrganization fetches an organization by key
func (s *ArangoStore) GetOrganization(ctx context.Context, key string) (*model.Organization, error) {
	query := `
		FOR o IN orgs
			FILTER o._key == @key
			LIMIT 1
			RETURN o
	`
	return queryOne[model.Organization](ctx, s.q, query, map[string]interface{}{"key": key})
}

// UpdateOrganization writes the editable fields of org
func (s *ArangoStore) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	query := `
		FOR o IN orgs
			FILTER o._key == @key
			UPDATE o WITH {
				name: @name,
				description: @description,
				logo: @logo,
				updated_at: @now
			} IN orgs
			RETURN NEW._key
	`
	keys, err := queryAll[string](ctx, s.q, query, map[string]interface{}{
		"key":         org.Key,
		"name":        org.Name,
		"description": org.Description,
		"logo":        org.Logo,
		"now":         org.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrganization removes the organization document
func (s *ArangoStore) DeleteOrganization(ctx context.Context, key string) error {
	query := `
		FOR o IN orgs
			FILTER o._key == @key
			REMOVE o IN orgs
			RETURN OLD._key
	`
	keys, err := queryAll[string](ctx, s.q, query, map[string]interface{}{"key": key})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrganizationsForMember returns the organizations whose member list contains userKey
func (s *ArangoStore) ListOrganizationsForMember(ctx context.Context, userKey string) ([]*model.Organization, error) {
	query := `
		FOR o IN orgs
			FILTER @user IN o.members[*].user_id
			SORT o.created_at ASC
			RETURN o
	`
	return queryAll[*model.Organization](ctx, s.q, query, map[string]interface{}{"user": userKey})
}

// AddOrganizationMember appends m to the member list
func (s *ArangoStore) AddOrganizationMember(ctx context.Context, orgKey string, m model.Member) (*model.Organization, error) {
	query := `
		FOR o IN orgs
			FILTER o._key == @key AND @user NOT IN (o.members || [])[*].user_id
			UPDATE o WITH { members: PUSH(o.members || [], @member), updated_at: @now } IN orgs
			RETURN NEW
	`
	org, err := queryOne[model.Organization](ctx, s.q, query, map[string]interface{}{
		"key":    orgKey,
		"user":   m.UserID,
		"member": m,
		"now":    time.Now().UTC(),
	})
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.GetOrganization(ctx, orgKey); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAlreadyMember
	}
	return org, err
}

// RemoveOrganizationMember drops userKey from the member list
func (s *ArangoStore) RemoveOrganizationMember(ctx context.Context, orgKey, userKey string) (*model.Organization, error) {
	query := `
		FOR o IN orgs
			FILTER o._key == @key
			UPDATE o WITH {
				members: (FOR m IN (o.members || []) FILTER m.user_id != @user RETURN m),
				updated_at: @now
			} IN orgs
			RETURN NEW
	`
	return queryOne[model.Organization](ctx, s.q, query, map[string]interface{}{
		"key":  orgKey,
		"user": userKey,
		"now":  time.Now().UTC(),
	})
}

// SetOrganizationMemberRole changes the role of an existing member entry
func (s *ArangoStore) SetOrganizationMemberRole(ctx context.Context, orgKey, userKey string, role model.Role) (*model.Organization, error) {
	query := `
		FOR o IN orgs
			FILTER o._key == @key AND @user IN (o.members || [])[*].user_id
			UPDATE o WITH {
				members: (FOR m IN o.members RETURN m.user_id == @user ? MERGE(m, { role: @role }) : m),
				updated_at: @now
			} IN orgs
			RETURN NEW
	`
	return queryOne[model.Organization](ctx, s.q, query, map[string]interface{}{
		"key":  orgKey,
		"user": userKey,
		"role": role,
		"now":  time.Now().UTC(),
	})
}

// -- helpers ------------------------------------------------------------------

func (s *ArangoStore) exec(ctx context.Context, query string, bindVars map[string]interface{}) error {
	cursor, err := s.q.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}

func queryAll[T any](ctx context.Context, q querier, query string, bindVars map[string]interface{}) ([]T, error) {
	cursor, err := q.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var out []T
	for cursor.HasMore() {
		var doc T
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, q querier, query string, bindVars map[string]interface{}) (*T, error) {
	cursor, err := q.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, ErrNotFound
	}
	var doc T
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
