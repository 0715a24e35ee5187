package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// MongoSource reads knowledge content from a MongoDB database. Each
// collection becomes one section, documents rendered one per line.
type MongoSource struct {
	client   *mongo.Client
	database string
	docLimit int
	logger   arbor.ILogger
}

// NewMongoSource connects to MongoDB and verifies the connection.
func NewMongoSource(ctx context.Context, config *common.MongoConfig, logger arbor.ILogger) (interfaces.KnowledgeSource, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongo source requires a URI")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("mongo source requires a database name")
	}

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	docLimit := config.DocLimit
	if docLimit <= 0 {
		docLimit = 100
	}

	logger.Info().Str("database", config.Database).Msg("Mongo knowledge source connected")

	return &MongoSource{
		client:   client,
		database: config.Database,
		docLimit: docLimit,
		logger:   logger,
	}, nil
}

// Name returns the source name used in priority ordering and logs.
func (s *MongoSource) Name() string {
	return "mongo"
}

// FetchAll dumps every collection into section-formatted text.
func (s *MongoSource) FetchAll(ctx context.Context) (string, error) {
	db := s.client.Database(s.database)

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return "", fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)

	var sb strings.Builder
	fetched := 0
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		section, err := s.dumpCollection(ctx, db.Collection(name), name)
		if err != nil {
			s.logger.Warn().Str("collection", name).Err(err).Msg("Skipping collection")
			continue
		}
		if section == "" {
			continue
		}
		sb.WriteString(section)
		sb.WriteString("\n")
		fetched++
	}

	if fetched == 0 {
		return "", fmt.Errorf("no readable collections in database %s", s.database)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close disconnects the client.
func (s *MongoSource) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoSource) dumpCollection(ctx context.Context, collection *mongo.Collection, name string) (string, error) {
	findOpts := mongooptions.Find().SetLimit(int64(s.docLimit))
	cursor, err := collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	var sb strings.Builder
	sb.WriteString(models.SectionMarker)
	sb.WriteString(strings.ToUpper(name))
	sb.WriteString(" ===\n")

	docCount := 0
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return "", err
		}
		delete(doc, "_id")

		line := formatRecord(map[string]any(doc))
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		docCount++
	}
	if err := cursor.Err(); err != nil {
		return "", err
	}
	if docCount == 0 {
		return "", nil
	}
	return sb.String(), nil
}
