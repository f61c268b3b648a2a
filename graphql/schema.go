// Package graphql assembles the read-only GraphQL schema.
package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/ortelius/tenancy-backend/graphql/modules/organizations"
	"github.com/ortelius/tenancy-backend/internal/services"
)

// CreateSchema builds the root schema from the module query fields.
func CreateSchema(coord *services.Coordinator) (graphql.Schema, error) {
	fields := graphql.Fields{}
	for name, field := range organizations.GetQueryFields(coord) {
		fields[name] = field
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
}
