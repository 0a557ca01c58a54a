package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justuche224/swift/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	Owner     string         `bson:"owner"`
	Lines     []lineDocument `bson:"lines"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// Prices are stored as strings so no precision is lost to float64.
type lineDocument struct {
	ProductID string `bson:"product_id"`
	Variant   string `bson:"variant,omitempty"`
	Name      string `bson:"name"`
	UnitPrice string `bson:"unit_price"`
	Image     string `bson:"image,omitempty"`
	Quantity  int    `bson:"quantity"`
}

type MongoStorage struct {
	collection *mongo.Collection
	ttl        time.Duration
	now        func() time.Time
}

func NewMongoStorage(db *mongo.Database, ttl time.Duration) *MongoStorage {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &MongoStorage{
		collection: db.Collection("carts"),
		ttl:        ttl,
		now:        time.Now,
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

// CreateIndexes enforces one document per owner and expires idle carts.
func (m *MongoStorage) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl / time.Second)),
		},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoStorage) Get(ctx context.Context, owner string) ([]domain.CartLine, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"owner": owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, d := range doc.Lines {
		price, err := decimal.NewFromString(d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("decode price of %s: %w", d.ProductID, err)
		}
		lines = append(lines, domain.CartLine{
			ProductID: d.ProductID,
			Variant:   d.Variant,
			Name:      d.Name,
			UnitPrice: price,
			Image:     d.Image,
			Quantity:  d.Quantity,
		})
	}
	return lines, nil
}

func (m *MongoStorage) Set(ctx context.Context, owner string, lines []domain.CartLine) error {
	docs := make([]lineDocument, 0, len(lines))
	for _, l := range lines {
		docs = append(docs, lineDocument{
			ProductID: l.ProductID,
			Variant:   l.Variant,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.String(),
			Image:     l.Image,
			Quantity:  l.Quantity,
		})
	}

	now := m.now()
	update := bson.M{
		"$set":         bson.M{"lines": docs, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := m.collection.UpdateOne(ctx, bson.M{"owner": owner}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStorage) Clear(ctx context.Context, owner string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"owner": owner}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
