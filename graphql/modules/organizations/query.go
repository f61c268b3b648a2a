package organizations

import (
	"github.com/graphql-go/graphql"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/model"
)

// GetQueryFields returns the read-only tenancy queries to be mounted in the root schema.
// Every resolver reads the caller from the request context.
func GetQueryFields(coord *services.Coordinator) graphql.Fields {
	return graphql.Fields{
		"me": &graphql.Field{
			Type: UserType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				user, err := caller(p)
				if err != nil {
					return nil, err
				}
				return user.View(), nil
			},
		},
		"organizations": &graphql.Field{
			Type: graphql.NewList(OrganizationType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				user, err := caller(p)
				if err != nil {
					return nil, err
				}
				orgs, err := coord.ListUserOrganizations(p.Context, user.Key)
				if err != nil {
					return nil, clientError(err)
				}
				views := make([]model.OrganizationView, 0, len(orgs))
				for _, o := range orgs {
					views = append(views, o.View())
				}
				return views, nil
			},
		},
		"organization": &graphql.Field{
			Type: OrganizationType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				user, err := caller(p)
				if err != nil {
					return nil, err
				}
				id, _ := p.Args["id"].(string)
				if err := services.Authorize(user, id, services.ViewOrgRoles...); err != nil {
					return nil, err
				}
				org, err := coord.GetOrganization(p.Context, id)
				if err != nil {
					return nil, clientError(err)
				}
				return org.View(), nil
			},
		},
		"members": &graphql.Field{
			Type: graphql.NewList(MemberProfileType),
			Args: graphql.FieldConfigArgument{
				"organizationId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				user, err := caller(p)
				if err != nil {
					return nil, err
				}
				id, _ := p.Args["organizationId"].(string)
				if err := services.Authorize(user, id, services.ListMembersRoles...); err != nil {
					return nil, err
				}
				members, err := coord.ListMembers(p.Context, id)
				if err != nil {
					return nil, clientError(err)
				}
				return members, nil
			},
		},
	}
}

func caller(p graphql.ResolveParams) (*model.User, error) {
	if p.Context != nil {
		if user, ok := services.UserFromContext(p.Context); ok {
			return user, nil
		}
	}
	return nil, services.Authorize(nil, "")
}

// clientError hides internal failures from the GraphQL error list.
func clientError(err error) error {
	if services.Kind(err) == services.ErrInternal {
		return services.ErrInternal
	}
	return err
}
