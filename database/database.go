// Package database - Handles all interaction with ArangoDB
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// Collection names
const (
	UsersCollection = "users"
	OrgsCollection  = "orgs"
)

// DBConnection is the structure that defined the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
}

// Options describes how to reach ArangoDB.
type Options struct {
	Endpoint string
	User     string
	Password string
	Database string

	// InitialInterval and MaxInterval shape the connection backoff. Zero values use 10s and 2m.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Define a struct to hold the index definition
type indexConfig struct {
	Collection string
	IdxName    string
	IdxFields  []string
	Unique     bool
	Sparse     bool
}

var indexes = []indexConfig{
	// Email is the login identity; exact match, so no LOWER() index.
	{Collection: UsersCollection, IdxName: "users_email_unique", IdxFields: []string{"email"}, Unique: true},
	{Collection: UsersCollection, IdxName: "users_membership_org", IdxFields: []string{"organizations[*].organization_id"}},
	{Collection: OrgsCollection, IdxName: "orgs_members_user", IdxFields: []string{"members[*].user_id"}},
	{Collection: OrgsCollection, IdxName: "orgs_owner", IdxFields: []string{"owner"}},
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// InitializeDatabase connects to the db engine with backoff retry, then creates the database,
// collections and indexes that are missing. It retries until ctx is done.
func InitializeDatabase(ctx context.Context, opts Options, logger *zap.Logger) (*DBConnection, error) {
	initialInterval := opts.InitialInterval
	if initialInterval <= 0 {
		initialInterval = 10 * time.Second
	}
	maxInterval := opts.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 2 * time.Minute
	}

	var client arangodb.Client

	//
	// Database connection with backoff retry
	//

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = 0 // retry until ctx is cancelled

	err := backoff.RetryNotify(func() error {
		logger.Info("Attempting to connect to ArangoDB", zap.String("endpoint", opts.Endpoint))
		endpoint := connection.NewRoundRobinEndpoints([]string{opts.Endpoint})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, opts.User, opts.Password))

		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}

		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.Warn("Retrying connection to ArangoDB", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ArangoDB: %w", err)
	}

	//
	// Database creation
	//

	var db arangodb.Database
	dblist, err := client.Databases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	exists := false
	for _, dbinfo := range dblist {
		if dbinfo.Name() == opts.Database {
			exists = true
			break
		}
	}

	if exists {
		var options arangodb.GetDatabaseOptions
		if db, err = client.GetDatabase(ctx, opts.Database, &options); err != nil {
			return nil, fmt.Errorf("get database %s: %w", opts.Database, err)
		}
	} else {
		if db, err = client.CreateDatabase(ctx, opts.Database, nil); err != nil {
			return nil, fmt.Errorf("create database %s: %w", opts.Database, err)
		}
	}

	//
	// Collection creation for document storage
	//

	collections := make(map[string]arangodb.Collection)
	for _, collectionName := range []string{UsersCollection, OrgsCollection} {
		var col arangodb.Collection

		exists, err = db.CollectionExists(ctx, collectionName)
		if err != nil {
			return nil, fmt.Errorf("check collection %s: %w", collectionName, err)
		}
		if exists {
			var options arangodb.GetCollectionOptions
			if col, err = db.GetCollection(ctx, collectionName, &options); err != nil {
				return nil, fmt.Errorf("use collection %s: %w", collectionName, err)
			}
		} else {
			if col, err = db.CreateCollectionV2(ctx, collectionName, nil); err != nil {
				return nil, fmt.Errorf("create collection %s: %w", collectionName, err)
			}
		}
		collections[collectionName] = col
	}

	//
	// Index creation
	//

	for _, idx := range indexes {
		if err := ensureIndex(ctx, collections[idx.Collection], idx, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("Database initialization complete", zap.String("database", opts.Database))

	return &DBConnection{
		Database:    db,
		Collections: collections,
	}, nil
}

func ensureIndex(ctx context.Context, col arangodb.Collection, idx indexConfig, logger *zap.Logger) error {
	if existing, err := col.Indexes(ctx); err == nil {
		for _, index := range existing {
			if idx.IdxName == index.Name {
				return nil
			}
		}
	}

	unique := idx.Unique
	sparse := idx.Sparse
	indexOptions := arangodb.CreatePersistentIndexOptions{
		Unique: &unique,
		Sparse: &sparse,
		Name:   idx.IdxName,
	}

	if _, _, err := col.EnsurePersistentIndex(ctx, idx.IdxFields, &indexOptions); err != nil {
		return fmt.Errorf("create index %s on %s: %w", idx.IdxName, idx.Collection, err)
	}
	logger.Sugar().Infof("Created index: %s on %s.%v", idx.IdxName, idx.Collection, idx.IdxFields)
	return nil
}
