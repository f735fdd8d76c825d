package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/harvestgoat/internal/config"
)

// MongoStorage archives events in a MongoDB collection and serves them
// back by day for clustering and archiving.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB and pings it.
func NewMongoStorage(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(ctx context.Context, ev *Event) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

// dayFilter matches scraping events whose timestamp falls on day in loc.
func dayFilter(day time.Time, loc *time.Location) bson.M {
	start, end := DayBounds(day, loc)
	return bson.M{
		"event":     EventScraping,
		"timestamp": bson.M{"$gte": start, "$lt": end},
	}
}

// LoadDay returns the scraping events recorded on day, oldest first.
func (s *MongoStorage) LoadDay(ctx context.Context, day time.Time, loc *time.Location) ([]*Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.collection.Find(ctx, dayFilter(day, loc), opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cur.Close(ctx)

	var events []*Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	return events, nil
}

// DeleteDay removes the scraping events recorded on day.
func (s *MongoStorage) DeleteDay(ctx context.Context, day time.Time, loc *time.Location) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, dayFilter(day, loc))
	if err != nil {
		return 0, fmt.Errorf("mongodb delete: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStorage) Close() error {
	s.mu.Lock()
	total := s.count
	s.mu.Unlock()

	s.logger.Info("mongodb storage closing", "total_events", total)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
