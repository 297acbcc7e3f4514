package mongo

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI         = "mongodb://localhost:27017"
	defaultDatabase    = "duplex"
	defaultMaxPoolSize = 10

	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 5 * time.Second
)

// Client owns the driver connection and the database holding session
// records. Session documents are small and written once per recording, so
// the pool stays modest unless overridden.
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

type config struct {
	uri         string
	database    string
	maxPoolSize uint64
}

// configFromEnv reads connection settings, falling back to local
// development defaults. A malformed or zero MONGODB_MAX_POOL_SIZE is
// ignored rather than refusing to start.
func configFromEnv() config {
	cfg := config{
		uri:         os.Getenv("MONGODB_URI"),
		database:    os.Getenv("MONGODB_DATABASE"),
		maxPoolSize: defaultMaxPoolSize,
	}
	if cfg.uri == "" {
		cfg.uri = defaultURI
	}
	if cfg.database == "" {
		cfg.database = defaultDatabase
	}
	if raw := os.Getenv("MONGODB_MAX_POOL_SIZE"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil && parsed > 0 {
			cfg.maxPoolSize = parsed
		}
	}
	return cfg
}

// NewClient connects and pings before handing the client out, so a bad URI
// fails at startup instead of on the first session write. The URI is never
// logged; it may carry credentials.
func NewClient(logger *zap.Logger) (*Client, error) {
	cfg := configFromEnv()

	clientOptions := options.Client().
		ApplyURI(cfg.uri).
		SetMaxPoolSize(cfg.maxPoolSize).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetConnectTimeout(connectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.database),
		zap.Uint64("maxPoolSize", cfg.maxPoolSize))

	return &Client{
		Client:   client,
		Database: client.Database(cfg.database),
		logger:   logger,
	}, nil
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
