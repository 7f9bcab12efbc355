// Package mongodb implements the row-store boundary on MongoDB. Each logical
// table maps to a collection in one database; row ids live in _id so the
// backend's primary index enforces id uniqueness for free.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// Store implements rowstore.Store for MongoDB.
type Store struct {
	client *mongo.Client
	dbName string
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri string, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, dbName: dbName}, nil
}

// EnsureIndexes creates the indexes the engine relies on: the unique
// (packaging_date, waybill_number) pair, unique product barcodes, and the
// lookup paths for items, components and audit sweeps.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		rowstore.TablePackagingRecords: {{
			Keys:    bson.D{{Key: "packaging_date", Value: 1}, {Key: "waybill_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		rowstore.TableProducts: {{
			Keys:    bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		rowstore.TablePackagingItems: {{
			Keys: bson.D{{Key: "packaging_record_id", Value: 1}},
		}},
		rowstore.TableProductComponents: {{
			Keys: bson.D{{Key: "parent_product_id", Value: 1}},
		}},
		rowstore.TableAuditLogs: {{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
		}},
	}

	for table, models := range indexes {
		if _, err := s.collection(table).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", table, err)
		}
	}
	return nil
}

// CreateRow inserts data as a new document, assigning an id when none is
// supplied. Unique index violations surface as rowstore.ErrConflict.
func (s *Store) CreateRow(ctx context.Context, table string, data rowstore.Row) (rowstore.Row, error) {
	row := make(rowstore.Row, len(data)+1)
	for k, v := range data {
		row[k] = v
	}
	if row.ID() == "" {
		row["id"] = uuid.NewString()
	}

	if _, err := s.collection(table).InsertOne(ctx, toDoc(row)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("table %s: %w", table, rowstore.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return row, nil
}

// GetRow fetches a document by id.
func (s *Store) GetRow(ctx context.Context, table, id string) (rowstore.Row, error) {
	var doc bson.M
	err := s.collection(table).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", table, err)
	}
	return fromDoc(doc), nil
}

// ListRows returns the documents matching q plus the total match count.
func (s *Store) ListRows(ctx context.Context, table string, q rowstore.Query) (rowstore.ListResult, error) {
	if err := q.Validate(); err != nil {
		return rowstore.ListResult{}, err
	}

	filter := toFilter(q.Predicates)
	coll := s.collection(table)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return rowstore.ListResult{}, fmt.Errorf("failed to count %s: %w", table, err)
	}

	findOptions := options.Find()
	direction := 1
	if q.Descending {
		direction = -1
	}
	// The trailing _id key makes the order total; ties on the order key alone
	// would let offset pages overlap or skip rows.
	sortDoc := bson.D{}
	if field := fieldName(q.OrderBy); field != "" && field != "_id" {
		sortDoc = append(sortDoc, bson.E{Key: field, Value: direction})
	}
	sortDoc = append(sortDoc, bson.E{Key: "_id", Value: direction})
	findOptions.SetSort(sortDoc)
	if q.Offset > 0 {
		findOptions.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := coll.Find(ctx, filter, findOptions)
	if err != nil {
		return rowstore.ListResult{}, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return rowstore.ListResult{}, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}

	rows := make([]rowstore.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, fromDoc(doc))
	}
	return rowstore.ListResult{Rows: rows, Total: int(total)}, nil
}

// UpdateRow applies patch via $set and returns the updated document.
func (s *Store) UpdateRow(ctx context.Context, table, id string, patch rowstore.Row) (rowstore.Row, error) {
	set := bson.M{}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		set[k] = v
	}

	var doc bson.M
	err := s.collection(table).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("table %s: %w", table, rowstore.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return fromDoc(doc), nil
}

// DeleteRow removes the document by id.
func (s *Store) DeleteRow(ctx context.Context, table, id string) error {
	res, err := s.collection(table).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(table string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(table)
}

func toFilter(predicates []rowstore.Predicate) bson.M {
	filter := bson.M{}
	for _, p := range predicates {
		switch p.Op {
		case rowstore.OpEq:
			filter[fieldName(p.Field)] = p.Value
		case rowstore.OpIn:
			filter[fieldName(p.Field)] = bson.M{"$in": p.Values}
		}
	}
	return filter
}

// fieldName maps the boundary's id field onto Mongo's _id.
func fieldName(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func toDoc(row rowstore.Row) bson.M {
	doc := make(bson.M, len(row))
	for k, v := range row {
		doc[fieldName(k)] = v
	}
	return doc
}

func fromDoc(doc bson.M) rowstore.Row {
	row := make(rowstore.Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			row["id"] = v
			continue
		}
		row[k] = v
	}
	return row
}
