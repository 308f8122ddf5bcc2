package testutil

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoContainer wraps a MongoDB testcontainer.
type MongoContainer struct {
	*mongodb.MongoDBContainer
	ConnectionString string
}

// NewMongoContainer starts a single-node MongoDB for testing.
// The returned connection string carries no database path, so callers pick
// the database by name.
func NewMongoContainer(ctx context.Context) (*MongoContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		return nil, fmt.Errorf("start mongodb container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &MongoContainer{
		MongoDBContainer: container,
		ConnectionString: connStr,
	}, nil
}
