// Package mongo keeps transactions, budgets and notifications as documents.
// Amounts are stored as decimal strings.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transactionDoc struct {
	ID        string    `bson:"_id"`
	UserID    int64     `bson:"userId"`
	Hash      string    `bson:"hash"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Amount    string    `bson:"amount"`
	Timestamp time.Time `bson:"timestamp"`
	Currency  string    `bson:"currency"`
	Category  string    `bson:"category"`
	Status    string    `bson:"status"`
	Type      string    `bson:"type"`
}

type budgetDoc struct {
	ID          string    `bson:"_id"`
	UserID      int64     `bson:"userId"`
	Amount      string    `bson:"amount"`
	PeriodStart time.Time `bson:"periodStart"`
	PeriodEnd   time.Time `bson:"periodEnd"`
	Currency    string    `bson:"currency"`
	Notified    bool      `bson:"notified"`
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	UserID    int64     `bson:"userId"`
	Message   string    `bson:"message"`
	Timestamp time.Time `bson:"timestamp"`
	Read      bool      `bson:"read"`
}

// Open connects to uri, ensures the indexes of database dbName and returns the store.
func Open(ctx context.Context, uri, dbName string) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return repository.Store{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return repository.Store{}, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return repository.Store{}, err
	}
	return repository.Store{
		Transactions:  &transactionsRepo{db.Collection("transactions")},
		Budgets:       &budgetsRepo{db.Collection("budgets")},
		Notifications: &notificationsRepo{db.Collection("notifications")},
		Close:         client.Disconnect,
	}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	idx := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{"transactions", mongo.IndexModel{Keys: bson.D{{Key: "hash", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"transactions", mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}}},
		{"budgets", mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"notifications", mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}}},
	}
	for _, i := range idx {
		if _, err := db.Collection(i.coll).Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.coll, err)
		}
	}
	return nil
}

type transactionsRepo struct{ c *mongo.Collection }

func (r *transactionsRepo) Exists(ctx context.Context, hash string) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"hash": hash}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *transactionsRepo) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := r.c.InsertOne(ctx, transactionDoc{
		ID: tx.ID, UserID: tx.UserID, Hash: tx.Hash, From: tx.From, To: tx.To,
		Amount: tx.Amount.String(), Timestamp: tx.Timestamp.UTC(), Currency: tx.Currency,
		Category: tx.Category, Status: string(tx.Status), Type: string(tx.Type),
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.Transaction{}, repository.ErrConflict
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func (r *transactionsRepo) GetByHash(ctx context.Context, hash string) (models.Transaction, error) {
	var d transactionDoc
	err := r.c.FindOne(ctx, bson.M{"hash": hash}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return d.model()
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	cur, err := r.c.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "hash", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (d transactionDoc) model() (models.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s amount: %w", d.Hash, err)
	}
	return models.Transaction{
		ID: d.ID, UserID: d.UserID, Hash: d.Hash, From: d.From, To: d.To, Amount: amount,
		Timestamp: d.Timestamp, Currency: d.Currency, Category: d.Category,
		Status: models.TransactionStatus(d.Status), Type: models.TransactionType(d.Type),
	}, nil
}

type budgetsRepo struct{ c *mongo.Collection }

func (r *budgetsRepo) GetByUser(ctx context.Context, userID int64) (models.Budget, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *budgetsRepo) GetByID(ctx context.Context, id string) (models.Budget, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *budgetsRepo) Upsert(ctx context.Context, b models.Budget) (models.Budget, error) {
	update := bson.M{
		"$set":         budgetFields(b),
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return decodeBudget(r.c.FindOneAndUpdate(ctx, bson.M{"userId": b.UserID}, update, opts))
}

func (r *budgetsRepo) Update(ctx context.Context, b models.Budget) (models.Budget, error) {
	fields := budgetFields(b)
	fields["userId"] = b.UserID
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeBudget(r.c.FindOneAndUpdate(ctx, bson.M{"_id": b.ID}, bson.M{"$set": fields}, opts))
}

func (r *budgetsRepo) MarkNotified(ctx context.Context, id string) (bool, error) {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "notified": false}, bson.M{"$set": bson.M{"notified": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *budgetsRepo) ClearNotified(ctx context.Context, id string) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"notified": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *budgetsRepo) findOne(ctx context.Context, filter bson.M) (models.Budget, error) {
	return decodeBudget(r.c.FindOne(ctx, filter))
}

func budgetFields(b models.Budget) bson.M {
	return bson.M{
		"amount":      b.Amount.String(),
		"periodStart": b.PeriodStart.UTC(),
		"periodEnd":   b.PeriodEnd.UTC(),
		"currency":    b.Currency,
		"notified":    false,
	}
}

func decodeBudget(res *mongo.SingleResult) (models.Budget, error) {
	var d budgetDoc
	err := res.Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Budget{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Budget{}, err
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return models.Budget{}, fmt.Errorf("budget %s amount: %w", d.ID, err)
	}
	return models.Budget{
		ID: d.ID, UserID: d.UserID, Amount: amount, PeriodStart: d.PeriodStart,
		PeriodEnd: d.PeriodEnd, Currency: d.Currency, Notified: d.Notified,
	}, nil
}

type notificationsRepo struct{ c *mongo.Collection }

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.NewString()
	n.Read = false
	_, err := r.c.InsertOne(ctx, notificationDoc{
		ID: n.ID, UserID: n.UserID, Message: n.Message, Timestamp: n.Timestamp.UTC(),
	})
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	cur, err := r.c.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *notificationsRepo) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	var d notificationDoc
	err := r.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Notification{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Notification{}, err
	}
	return d.model(), nil
}

func (d notificationDoc) model() models.Notification {
	return models.Notification{ID: d.ID, UserID: d.UserID, Message: d.Message, Timestamp: d.Timestamp, Read: d.Read}
}
