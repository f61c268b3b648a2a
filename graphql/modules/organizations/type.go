// Package organizations defines the GraphQL types for users, organizations and memberships.
package organizations

import (
	"github.com/graphql-go/graphql"
	"github.com/ortelius/tenancy-backend/model"
)

// MembershipType is one entry of a user's organization list.
var MembershipType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Membership",
	Fields: graphql.Fields{
		"organizationId": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if m, ok := p.Source.(model.UserMembership); ok {
					return m.OrganizationID, nil
				}
				return nil, nil
			},
		},
		"role": &graphql.Field{Type: graphql.String},
	},
})

// UserType is the credential-free user.
var UserType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.String},
		"name":           &graphql.Field{Type: graphql.String},
		"email":          &graphql.Field{Type: graphql.String},
		"description":    &graphql.Field{Type: graphql.String},
		"profilePicture": &graphql.Field{Type: graphql.String},
		"organizations":  &graphql.Field{Type: graphql.NewList(MembershipType)},
		"createdAt":      &graphql.Field{Type: graphql.DateTime},
		"updatedAt":      &graphql.Field{Type: graphql.DateTime},
	},
})

// MemberType is an organization member entry.
var MemberType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Member",
	Fields: graphql.Fields{
		"userId": &graphql.Field{Type: graphql.String},
		"role":   &graphql.Field{Type: graphql.String},
	},
})

// MemberProfileType is a member entry joined with the member's profile.
var MemberProfileType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MemberProfile",
	Fields: graphql.Fields{
		"userId":         &graphql.Field{Type: graphql.String},
		"name":           &graphql.Field{Type: graphql.String},
		"email":          &graphql.Field{Type: graphql.String},
		"profilePicture": &graphql.Field{Type: graphql.String},
		"role":           &graphql.Field{Type: graphql.String},
	},
})

// OrganizationType is an organization with its member list.
var OrganizationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Organization",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.String},
		"name":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"logo":        &graphql.Field{Type: graphql.String},
		"owner":       &graphql.Field{Type: graphql.String},
		"members":     &graphql.Field{Type: graphql.NewList(MemberType)},
		"createdAt":   &graphql.Field{Type: graphql.DateTime},
		"updatedAt":   &graphql.Field{Type: graphql.DateTime},
	},
})
