package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlestand-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoDBStore implements Store using MongoDB. Batch operations run inside a
// multi-document transaction and therefore need a replica set deployment.
type MongoDBStore struct {
	client       *mongo.Client
	db           *mongo.Database
	stands       *mongo.Collection
	transactions *mongo.Collection
	log          *zap.Logger
}

// NewMongoDBStore connects to MongoDB and prepares the stands and transactions collections.
func NewMongoDBStore(uri, database string, log *zap.Logger) (*MongoDBStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("MongoDBStore")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	r := &MongoDBStore{
		client:       client,
		db:           db,
		stands:       db.Collection("stands"),
		transactions: db.Collection("transactions"),
		log:          log,
	}

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{r.stands, mongo.IndexModel{Keys: bson.D{{Key: "serialnumber", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.stands, mongo.IndexModel{Keys: bson.D{{Key: "stid", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.transactions, mongo.IndexModel{Keys: bson.D{{Key: "trzid", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.transactions, mongo.IndexModel{Keys: bson.D{{Key: "stid", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			log.Warn("failed to create index", zap.String("collection", idx.coll.Name()), zap.Error(err))
		}
	}

	log.Info("connected", zap.String("database", database))
	return r, nil
}

// FindStandBySerial finds a stand by its device serial number.
func (r *MongoDBStore) FindStandBySerial(ctx context.Context, serialNumber string) (*model.Stand, error) {
	var stand model.Stand
	err := r.stands.FindOne(ctx, bson.M{"serialnumber": serialNumber}).Decode(&stand)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stand: %w", err)
	}
	return &stand, nil
}

// CreateStand inserts a new stand document.
func (r *MongoDBStore) CreateStand(ctx context.Context, stand *model.Stand) error {
	if _, err := r.stands.InsertOne(ctx, stand); err != nil {
		return fmt.Errorf("failed to create stand: %w", err)
	}
	return nil
}

// UpdateStand applies a partial update to the stand with the given session ID.
func (r *MongoDBStore) UpdateStand(ctx context.Context, sessionID string, update model.StandUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	set := bson.M{}
	if update.IsActive != nil {
		set["isactive"] = *update.IsActive
	}
	if update.CandlesOn != nil {
		set["candlesOn"] = *update.CandlesOn
	}
	if update.TotalCandles != nil {
		set["totalcandles"] = *update.TotalCandles
	}
	if update.Balance != nil {
		set["balance"] = *update.Balance
	}
	if update.Message != nil {
		set["message"] = *update.Message
	}

	result, err := r.stands.UpdateOne(ctx, bson.M{"stid": sessionID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update stand: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("stand %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// CreateTransaction inserts a new transaction document.
func (r *MongoDBStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	if _, err := r.transactions.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransactionsByStand returns every transaction of a stand, oldest first.
func (r *MongoDBStore) FindTransactionsByStand(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.transactions.Find(ctx, bson.M{"stid": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cursor.Close(ctx)

	txs := []model.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, nil
}

// BatchUpdateTransactions applies the update to all ids inside one MongoDB transaction.
func (r *MongoDBStore) BatchUpdateTransactions(ctx context.Context, ids []string, update model.TransactionUpdate) error {
	if len(ids) == 0 || update.IsEmpty() {
		return nil
	}

	set := bson.M{}
	if update.Confirmed != nil {
		set["isconfirmed"] = *update.Confirmed
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}

	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, id := range ids {
			result, err := r.transactions.UpdateOne(sc, bson.M{"trzid": id}, bson.M{"$set": set})
			if err != nil {
				return fmt.Errorf("failed to batch update transaction %s: %w", id, err)
			}
			if result.MatchedCount == 0 {
				return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
			}
		}
		return nil
	})
}

// BatchDeleteTransactions deletes all ids inside one MongoDB transaction.
func (r *MongoDBStore) BatchDeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		result, err := r.transactions.DeleteMany(sc, bson.M{"trzid": bson.M{"$in": ids}})
		if err != nil {
			return fmt.Errorf("failed to batch delete transactions: %w", err)
		}
		r.log.Debug("batch deleted transactions", zap.Int64("count", result.DeletedCount))
		return nil
	})
}

func (r *MongoDBStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// GetStats returns statistics about the stands and transactions collections.
func (r *MongoDBStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["type"] = "mongodb"

	counts := []struct {
		key    string
		coll   *mongo.Collection
		filter bson.M
	}{
		{"total_stands", r.stands, bson.M{}},
		{"active_stands", r.stands, bson.M{"isactive": true}},
		{"total_transactions", r.transactions, bson.M{}},
		{"pending_online_transactions", r.transactions, bson.M{"isonline": true, "isconfirmed": false}},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return stats, err
		}
		stats[c.key] = n
	}

	return stats, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoDBStore implements Store
var _ Store = (*MongoDBStore)(nil)
