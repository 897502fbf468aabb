package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akazakov/sklad/internal/model"
)

// MongoStore implements Store on a MongoDB database with one collection per
// entity type. Documents are keyed by the entity's UUID and carry an ownerId
// field for scoping, plus a server-side write time used by the bounded
// recent-activity query.
type MongoStore struct {
	client *mongo.Client
	dbName string
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &MongoStore{client: client, dbName: dbName}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) products() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("products")
}

func (s *MongoStore) transactions() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("transactions")
}

// productDoc is the remote shape of a product. Photos stay local; the price
// travels as a string to keep decimal exactness.
type productDoc struct {
	ID           string            `bson:"_id"`
	OwnerID      string            `bson:"ownerId"`
	Name         string            `bson:"name"`
	Organization string            `bson:"organization"`
	Price        string            `bson:"price"`
	Quantity     int64             `bson:"quantity"`
	Category     string            `bson:"category"`
	Technique    string            `bson:"technique"`
	Barcode      string            `bson:"barcode"`
	CustomFields map[string]string `bson:"customFields,omitempty"`
	ContainerID  string            `bson:"containerId,omitempty"`
	WriteTime    time.Time         `bson:"writeTime"`
}

type transactionDoc struct {
	ID              string    `bson:"_id"`
	OwnerID         string    `bson:"ownerId"`
	Date            time.Time `bson:"date"`
	Kind            string    `bson:"kind"`
	ProductID       string    `bson:"productId,omitempty"`
	ExpenseQuantity int64     `bson:"expenseQuantity"`
	ExpensePurpose  string    `bson:"expensePurpose,omitempty"`
	WriteTime       time.Time `bson:"writeTime"`
}

// SaveProduct upserts a product document under the owner's namespace.
func (s *MongoStore) SaveProduct(ctx context.Context, ownerID string, p model.Product) error {
	doc := productDoc{
		ID:           p.ID,
		OwnerID:      ownerID,
		Name:         p.Name,
		Organization: p.Organization,
		Price:        p.Price.String(),
		Quantity:     p.Quantity,
		Category:     p.Category,
		Technique:    p.Technique,
		Barcode:      p.Barcode,
		CustomFields: p.CustomFields,
		ContainerID:  p.ContainerID,
		WriteTime:    time.Now().UTC(),
	}

	_, err := s.products().ReplaceOne(ctx,
		bson.M{"_id": p.ID, "ownerId": ownerID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving remote product: %w", err)
	}
	return nil
}

// SaveTransaction upserts a transaction document under the owner's namespace.
func (s *MongoStore) SaveTransaction(ctx context.Context, ownerID string, t model.Transaction) error {
	doc := transactionDoc{
		ID:              t.ID,
		OwnerID:         ownerID,
		Date:            t.Date,
		Kind:            t.Kind,
		ProductID:       t.ProductID,
		ExpenseQuantity: t.ExpenseQuantity,
		ExpensePurpose:  t.ExpensePurpose,
		WriteTime:       time.Now().UTC(),
	}

	_, err := s.transactions().ReplaceOne(ctx,
		bson.M{"_id": t.ID, "ownerId": ownerID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving remote transaction: %w", err)
	}
	return nil
}

// FetchProducts returns the owner's full remote product set.
func (s *MongoStore) FetchProducts(ctx context.Context, ownerID string) ([]model.Product, error) {
	cursor, err := s.products().Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		return nil, fmt.Errorf("fetching remote products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []model.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding remote product: %w", err)
		}
		p, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, cursor.Err()
}

// FetchTransactions returns the owner's full remote transaction set.
func (s *MongoStore) FetchTransactions(ctx context.Context, ownerID string) ([]model.Transaction, error) {
	cursor, err := s.transactions().Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		return nil, fmt.Errorf("fetching remote transactions: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeTransactions(ctx, cursor)
}

// FetchRecentTransactions returns the owner's most recently written
// transactions, newest write first.
func (s *MongoStore) FetchRecentTransactions(ctx context.Context, ownerID string, limit int) ([]model.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "writeTime", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.transactions().Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("fetching recent remote transactions: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeTransactions(ctx, cursor)
}

func decodeTransactions(ctx context.Context, cursor *mongo.Cursor) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding remote transaction: %w", err)
		}
		transactions = append(transactions, model.Transaction{
			ID:              doc.ID,
			Date:            doc.Date,
			Kind:            doc.Kind,
			ProductID:       doc.ProductID,
			ExpenseQuantity: doc.ExpenseQuantity,
			ExpensePurpose:  doc.ExpensePurpose,
			OwnerID:         doc.OwnerID,
		})
	}
	return transactions, cursor.Err()
}

func (d productDoc) toModel() (*model.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return nil, fmt.Errorf("parsing remote product price %q: %w", d.Price, err)
	}
	return &model.Product{
		ID:           d.ID,
		Name:         d.Name,
		Organization: d.Organization,
		Price:        price,
		Quantity:     d.Quantity,
		Category:     d.Category,
		Technique:    d.Technique,
		Barcode:      d.Barcode,
		CustomFields: d.CustomFields,
		OwnerID:      d.OwnerID,
		ContainerID:  d.ContainerID,
	}, nil
}
