// Package services implements registration, authentication, the authorization policy and the
// membership coordinator on top of the database store.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ortelius/tenancy-backend/database"
	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead of truncated.
const maxPasswordBytes = 72

// ValidEmail reports whether email has the local@domain.tld shape accepted at registration.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Accounts handles registration, login, session verification and profiles.
type Accounts struct {
	store  database.Store
	hasher *security.Hasher
	tokens *security.TokenService
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAccounts wires the account service.
func NewAccounts(store database.Store, hasher *security.Hasher, tokens *security.TokenService, logger *zap.Logger) *Accounts {
	return &Accounts{store: store, hasher: hasher, tokens: tokens, logger: logger}
}

// Register creates a user with an empty membership list.
func (a *Accounts) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || email == "" || password == "" {
		return nil, failf(ErrValidation, "name, email and password are required")
	}
	if !ValidEmail(email) {
		return nil, failf(ErrValidation, "email is not a valid address")
	}
	if len(password) > maxPasswordBytes {
		return nil, failf(ErrValidation, "password must be at most %d bytes", maxPasswordBytes)
	}

	if _, err := a.store.GetUserByEmail(ctx, email); err == nil {
		return nil, failf(ErrConflict, "email is already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, storeErr(err, "user")
	}

	hash, err := a.hasher.Hash([]byte(password))
	if err != nil {
		return nil, failf(ErrInternal, "hash password: %v", err)
	}

	user := model.NewUser(uuid.New().String(), name, email, hash)
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, failf(ErrConflict, "email is already registered")
		}
		return nil, storeErr(err, "user")
	}

	a.logger.Info("User registered", zap.String("user_id", user.Key))
	return user, nil
}

// IssueToken signs a session token for user.
func (a *Accounts) IssueToken(user *model.User) (string, time.Time, error) {
	token, exp, err := a.tokens.Issue(user.Key)
	if err != nil {
		return "", time.Time{}, failf(ErrInternal, "issue token: %v", err)
	}
	return token, exp, nil
}

// Login verifies credentials and issues a session token. Unknown email and wrong password
// fail identically.
func (a *Accounts) Login(ctx context.Context, email, password string) (*model.User, string, time.Time, error) {
	invalid := failf(ErrUnauthenticated, "invalid credentials")
	if email == "" || password == "" {
		return nil, "", time.Time{}, invalid
	}

	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return nil, "", time.Time{}, storeErr(err, "user")
		}
		// Spend the same bcrypt time as a real comparison.
		_ = a.hasher.Compare(a.dummy(), []byte(password))
		return nil, "", time.Time{}, invalid
	}

	if err := a.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, "", time.Time{}, invalid
	}

	token, exp, err := a.IssueToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

func (a *Accounts) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash([]byte(uuid.New().String()))
	})
	return a.dummyHash
}

// Authenticate resolves an Authorization header value of the form "Bearer <token>" to the
// current user record.
func (a *Accounts) Authenticate(ctx context.Context, header string) (*model.User, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, failf(ErrUnauthenticated, "missing or malformed authorization header")
	}

	userID, err := a.tokens.Verify(token)
	if err != nil {
		return nil, failf(ErrUnauthenticated, "invalid or expired token")
	}

	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, failf(ErrUnauthenticated, "user no longer exists")
		}
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// GetProfile returns the user record for userID.
func (a *Accounts) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// UpdateProfile merges the provided fields into the user's profile.
func (a *Accounts) UpdateProfile(ctx context.Context, userID string, patch model.ProfileUpdate) (*model.User, error) {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, failf(ErrValidation, "name must not be empty")
		}
		user.Name = name
	}

	if patch.Email != nil && *patch.Email != user.Email {
		email := *patch.Email
		if !ValidEmail(email) {
			return nil, failf(ErrValidation, "email is not a valid address")
		}
		if other, err := a.store.GetUserByEmail(ctx, email); err == nil && other.Key != user.Key {
			return nil, failf(ErrConflict, "email is already in use")
		} else if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, storeErr(err, "user")
		}
		user.Email = email
	}

	if patch.Description != nil {
		user.Description = *patch.Description
	}
	if patch.ProfilePicture != nil {
		user.ProfilePicture = *patch.ProfilePicture
	}
	user.UpdatedAt = time.Now().UTC()

	if err := a.store.UpdateUserProfile(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, failf(ErrConflict, "email is already in use")
		}
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// ListUsers returns every user.
func (a *Accounts) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return users, nil
}

// ListNonMembers returns the users that are not in the organization's member list.
func (a *Accounts) ListNonMembers(ctx context.Context, orgID string) ([]*model.User, error) {
	org, err := a.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	users, err := a.store.ListUsersExcluding(ctx, org.MemberIDs())
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return users, nil
}
