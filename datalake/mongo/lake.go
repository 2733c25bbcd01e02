package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/datalake"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultConnectTimeout = 30 * time.Second

// Config holds connection parameters for the MongoDB data lake.
type Config struct {
	// Host is the MongoDB server hostname.
	Host string

	// Port is the MongoDB server port (default: 27017).
	Port int

	// Username and Password are optional credentials.
	Username string
	Password string

	// Database is the data-lake database name.
	Database string

	// ConnectTimeout bounds connection establishment and server selection.
	ConnectTimeout time.Duration
}

// Lake implements datalake.Lake backed by a MongoDB database.
type Lake struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ datalake.Lake = (*Lake)(nil)

// New connects to the MongoDB data lake and verifies the connection with a
// ping. Construction failure is explicit: a lake that cannot be reached is
// never returned.
func New(ctx context.Context, cfg *Config) (*Lake, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("%w: database name required", datalake.ErrDatalake)
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 27017
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	uri := fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port)
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.Username != "" && cfg.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %w", datalake.ErrDatalake, uri, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		if discErr := client.Disconnect(ctx); discErr != nil {
			slog.Warn("failed to disconnect after ping failure", "err", discErr)
		}
		return nil, fmt.Errorf("%w: ping %s: %w", datalake.ErrDatalake, uri, err)
	}

	logger := slog.Default().With("component", "mongo-lake")
	logger.Debug("connected to data lake", "uri", uri, "database", cfg.Database)

	return &Lake{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// WithSession runs fn inside one MongoDB session transaction. The transaction
// commits only when fn returns nil; any error aborts it. The session is ended
// on every path.
func (l *Lake) WithSession(ctx context.Context, fn func(ctx context.Context, sess datalake.Session) error) error {
	mongoSess, err := l.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %w", datalake.ErrDatalake, err)
	}
	defer mongoSess.EndSession(ctx)

	return mongo.WithSession(ctx, mongoSess, func(sc mongo.SessionContext) error {
		if err := mongoSess.StartTransaction(); err != nil {
			return fmt.Errorf("%w: start transaction: %w", datalake.ErrDatalake, err)
		}

		if err := fn(sc, &session{db: l.db}); err != nil {
			if abortErr := mongoSess.AbortTransaction(sc); abortErr != nil {
				l.logger.Error("failed to abort transaction", "err", abortErr)
			}
			return err
		}

		if err := mongoSess.CommitTransaction(sc); err != nil {
			return fmt.Errorf("%w: commit transaction: %w", datalake.ErrDatalake, err)
		}
		return nil
	})
}

// Close disconnects the underlying client.
func (l *Lake) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

// session implements datalake.Session over one active transaction context.
type session struct {
	db *mongo.Database
}

var _ datalake.Session = (*session)(nil)

// ListCollections lists collection names and filters them by prefix on the
// client side.
func (s *session) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %w", datalake.ErrDatalake, err)
	}

	filtered := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// Find opens a cursor over the records of one collection.
func (s *session) Find(ctx context.Context, collection string, filter map[string]any) (datalake.Cursor, error) {
	criteria := bson.M{}
	for k, v := range filter {
		criteria[k] = v
	}

	cur, err := s.db.Collection(collection).Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: query collection %s: %w", datalake.ErrDatalake, collection, err)
	}
	return &cursor{cur: cur}, nil
}

// cursor adapts *mongo.Cursor to datalake.Cursor.
type cursor struct {
	cur *mongo.Cursor
}

var _ datalake.Cursor = (*cursor)(nil)

func (c *cursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

func (c *cursor) Decode(record *core.RawRecord) error {
	return c.cur.Decode(record)
}

func (c *cursor) Err() error {
	if err := c.cur.Err(); err != nil {
		return fmt.Errorf("%w: cursor: %w", datalake.ErrDatalake, err)
	}
	return nil
}

func (c *cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
