package report

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// Default MongoDB locations.
const (
	DefaultDatabase   = "peerguard"
	DefaultCollection = "reports"
)

// MongoConfig locates the report collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore archives reports as documents, one per evaluation. Several
// projects can share a collection; each store only sees the documents of
// its own project directory.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	project string
}

// NewMongoStore connects to cfg.URI and pings the server.
func NewMongoStore(ctx context.Context, cfg MongoConfig, projectDir string) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		project: projectDir,
	}, nil
}

// NewMongoStoreFromCollection wraps an existing collection. Close is then a
// no-op; the caller owns the client.
func NewMongoStoreFromCollection(coll *mongo.Collection, projectDir string) *MongoStore {
	return &MongoStore{coll: coll, project: projectDir}
}

// Save inserts r and returns its run id.
func (s *MongoStore) Save(ctx context.Context, r *Report) (string, error) {
	if err := r.Validate(); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportPersist, err, "refuse report %s", r.RunID)
	}
	doc := *r
	doc.ProjectDir = s.project
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportPersist, err, "insert report %s", r.RunID)
	}
	return r.RunID, nil
}

func (s *MongoStore) filter() bson.D {
	return bson.D{{Key: "projectDir", Value: s.project}}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// List returns the project's reports sorted by createdAt descending.
func (s *MongoStore) List(ctx context.Context) ([]*Report, error) {
	cur, err := s.coll.Find(ctx, s.filter(), options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	var out []*Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return out, nil
}

// Latest returns the project's newest report.
func (s *MongoStore) Latest(ctx context.Context) (*Report, error) {
	var r Report
	err := s.coll.FindOne(ctx, s.filter(), options.FindOne().SetSort(newestFirst)).Decode(&r)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest report: %w", err)
	}
	return &r, nil
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
