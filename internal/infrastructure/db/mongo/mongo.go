package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout    = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

// Config selects the deployment and database shared by the platform services.
type Config struct {
	URI      string
	Database string
	// AppName shows up in server logs and currentOp, one per binary.
	AppName string
	Timeout time.Duration
}

// Connect returns a pinged client and its database.
//
// Embedded documents decode as bson.M so free-form section payloads render
// as JSON objects rather than key/value arrays.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("mongo: database name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}
	return client, client.Database(cfg.Database), nil
}

// Disconnect closes client within a fixed budget, for use in a deferred
// shutdown after the root context is already cancelled.
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
