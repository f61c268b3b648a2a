// Package seed applies a YAML file of users, organizations and memberships at startup.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config represents the YAML structure
type Config struct {
	Users         []User         `yaml:"users"`
	Organizations []Organization `yaml:"organizations"`
}

// User is an account to create when its email is not registered yet.
type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Organization is created for Owner (an email) when that owner has no organization of the same name.
type Organization struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Logo        string   `yaml:"logo,omitempty"`
	Owner       string   `yaml:"owner"`
	Members     []Member `yaml:"members"`
}

// Member adds the user with Email to the organization.
type Member struct {
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Result tracks the outcome of an apply
type Result struct {
	CreatedUsers         []string
	CreatedOrganizations []string
	AddedMembers         []string
	Skipped              []string
	Errors               []string
}

// Load reads and parses the seed file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	seenEmails := make(map[string]bool)
	for _, user := range config.Users {
		if user.Name == "" || user.Email == "" || user.Password == "" {
			return fmt.Errorf("name, email and password are required for user %q", user.Email)
		}
		if !services.ValidEmail(user.Email) {
			return fmt.Errorf("invalid email %q", user.Email)
		}
		if seenEmails[user.Email] {
			return fmt.Errorf("duplicate email: %s", user.Email)
		}
		seenEmails[user.Email] = true
	}

	for _, org := range config.Organizations {
		if strings.TrimSpace(org.Name) == "" || strings.TrimSpace(org.Description) == "" {
			return fmt.Errorf("name and description are required for organization %q", org.Name)
		}
		if org.Owner == "" {
			return fmt.Errorf("owner is required for organization %s", org.Name)
		}
		seenMembers := map[string]bool{org.Owner: true}
		for _, m := range org.Members {
			if m.Email == "" {
				return fmt.Errorf("member email is required in organization %s", org.Name)
			}
			role, err := model.ParseRole(m.Role)
			if err != nil {
				return fmt.Errorf("invalid role '%s' for %s in organization %s", m.Role, m.Email, org.Name)
			}
			if role == model.RoleOwner {
				return fmt.Errorf("%s cannot be an owner member of %s; use the owner field", m.Email, org.Name)
			}
			if seenMembers[m.Email] {
				return fmt.Errorf("duplicate member %s in organization %s", m.Email, org.Name)
			}
			seenMembers[m.Email] = true
		}
	}
	return nil
}

// Applier resolves emails and creates what the seed describes.
type Applier struct {
	Accounts    *services.Accounts
	Coordinator *services.Coordinator
	Lookup      func(ctx context.Context, email string) (*model.User, error)
	Logger      *zap.Logger
}

// Apply creates missing users, organizations and memberships. Existing records are left as they are,
// so applying the same file twice changes nothing.
func (a *Applier) Apply(ctx context.Context, config *Config) (*Result, error) {
	result := &Result{}

	for _, u := range config.Users {
		if _, err := a.Lookup(ctx, u.Email); err == nil {
			result.Skipped = append(result.Skipped, "user "+u.Email)
			continue
		}
		if _, err := a.Accounts.Register(ctx, u.Name, u.Email, u.Password); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to create user %s: %v", u.Email, err))
			continue
		}
		result.CreatedUsers = append(result.CreatedUsers, u.Email)
	}

	for _, o := range config.Organizations {
		owner, err := a.Lookup(ctx, o.Owner)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Owner %s of %s not found", o.Owner, o.Name))
			continue
		}

		org, err := a.findOwned(ctx, owner.Key, strings.TrimSpace(o.Name))
		if err != nil {
			return result, err
		}
		if org == nil {
			org, err = a.Coordinator.CreateOrganization(ctx, owner.Key, model.OrganizationAttributes{
				Name:        o.Name,
				Description: o.Description,
				Logo:        o.Logo,
			})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to create organization %s: %v", o.Name, err))
				continue
			}
			result.CreatedOrganizations = append(result.CreatedOrganizations, o.Name)
		} else {
			result.Skipped = append(result.Skipped, "organization "+o.Name)
		}

		for _, m := range o.Members {
			user, err := a.Lookup(ctx, m.Email)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Member %s of %s not found", m.Email, o.Name))
				continue
			}
			_, err = a.Coordinator.AddMember(ctx, org.Key, user.Key, m.Role)
			switch {
			case errors.Is(err, services.ErrAlreadyMember):
				result.Skipped = append(result.Skipped, fmt.Sprintf("member %s of %s", m.Email, o.Name))
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to add %s to %s: %v", m.Email, o.Name, err))
			default:
				result.AddedMembers = append(result.AddedMembers, fmt.Sprintf("%s -> %s", m.Email, o.Name))
			}
		}
	}

	a.Logger.Info("Seed applied",
		zap.Int("users_created", len(result.CreatedUsers)),
		zap.Int("organizations_created", len(result.CreatedOrganizations)),
		zap.Int("members_added", len(result.AddedMembers)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (a *Applier) findOwned(ctx context.Context, ownerID, name string) (*model.Organization, error) {
	orgs, err := a.Coordinator.ListUserOrganizations(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		if o.Owner == ownerID && o.Name == name {
			return o, nil
		}
	}
	return nil, nil
}
