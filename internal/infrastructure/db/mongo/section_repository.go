package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// SectionRepository stores each section in its own collection named after
// the section. Seed content has a null user_id.
type SectionRepository struct {
	db  *mongo.Database
	now func() time.Time
}

func NewSectionRepository(db *mongo.Database) *SectionRepository {
	return &SectionRepository{db: db, now: time.Now}
}

// mongoRecord keeps bookkeeping in typed fields and the free-form payload
// inline at the top level of the document.
type mongoRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    *string            `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	Fields    bson.M             `bson:",inline"`
}

// storageKeys collide with the typed fields of mongoRecord.
var storageKeys = []string{"_id", "user_id", "created_at", "updated_at"}

func payload(fields map[string]any) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range storageKeys {
		delete(out, k)
	}
	return out
}

func (m mongoRecord) toDomain(section domain.Section) *domain.Record {
	fields := make(map[string]any, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	return &domain.Record{
		ID:        m.ID.Hex(),
		Section:   section,
		OwnerID:   m.UserID,
		Fields:    fields,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *SectionRepository) coll(section domain.Section) *mongo.Collection {
	return r.db.Collection(string(section))
}

// EnsureIndexes creates the owner index on every section collection.
func (r *SectionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, s := range domain.Sections {
		_, err := r.coll(s).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", s, err)
		}
	}
	return nil
}

// List returns the records of owner in creation order. A nil owner selects
// seed content.
func (r *SectionRepository) List(ctx context.Context, section domain.Section, owner *string) ([]*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll(section).Find(ctx, bson.M{"user_id": ownerValue(owner)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", section, err)
	}
	defer cur.Close(ctx)

	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", section, err)
	}

	out := make([]*domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain(section))
	}
	return out, nil
}

// FindByID returns the record when it belongs to one of owners. With no
// owners the lookup is unscoped.
func (r *SectionRepository) FindByID(ctx context.Context, section domain.Section, id string, owners ...*string) (*domain.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	filter := bson.M{"_id": oid}
	if len(owners) > 0 {
		in := make(bson.A, 0, len(owners))
		for _, o := range owners {
			in = append(in, ownerValue(o))
		}
		filter["user_id"] = bson.M{"$in": in}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRecord
	if err := r.coll(section).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", section, err)
	}
	return doc.toDomain(section), nil
}

func (r *SectionRepository) Create(ctx context.Context, record *domain.Record) (*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	doc := mongoRecord{
		UserID:    record.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    payload(record.Fields),
	}

	res, err := r.coll(record.Section).InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", record.Section, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert %s: unexpected id type %T", record.Section, res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(record.Section), nil
}

// Update sets fields on the record matching id and owner. user_id is never
// part of the update document.
func (r *SectionRepository) Update(ctx context.Context, section domain.Section, id string, owner string, fields map[string]any) (*domain.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := payload(fields)
	set["updated_at"] = r.now().UTC()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRecord
	err = r.coll(section).FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": owner},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", section, err)
	}
	return doc.toDomain(section), nil
}

func (r *SectionRepository) Delete(ctx context.Context, section domain.Section, id string, owner string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll(section).DeleteOne(ctx, bson.M{"_id": oid, "user_id": owner})
	if err != nil {
		return fmt.Errorf("delete %s: %w", section, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Replace drops every record of owner in section and inserts items in order.
// It is not transactional: a failed insert leaves the section empty.
func (r *SectionRepository) Replace(ctx context.Context, section domain.Section, owner string, items []map[string]any) ([]*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll(section).DeleteMany(ctx, bson.M{"user_id": owner}); err != nil {
		return nil, fmt.Errorf("clear %s: %w", section, err)
	}
	if len(items) == 0 {
		return []*domain.Record{}, nil
	}

	now := r.now().UTC()
	ownerID := owner
	docs := make([]any, 0, len(items))
	records := make([]mongoRecord, 0, len(items))
	for i, item := range items {
		// Distinct created_at keeps the submitted order under the list sort.
		ts := now.Add(time.Duration(i) * time.Millisecond)
		d := mongoRecord{
			ID:        primitive.NewObjectID(),
			UserID:    &ownerID,
			CreatedAt: ts,
			UpdatedAt: ts,
			Fields:    payload(item),
		}
		docs = append(docs, d)
		records = append(records, d)
	}

	if _, err := r.coll(section).InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert %s: %w", section, err)
	}

	out := make([]*domain.Record, 0, len(records))
	for _, d := range records {
		out = append(out, d.toDomain(section))
	}
	return out, nil
}

// DisplayName returns the name field of userID's intro record, or "" when the
// tenant has none.
func (r *SectionRepository) DisplayName(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Name string `bson:"name"`
	}
	err := r.coll(domain.SectionIntro).FindOne(ctx, bson.M{"user_id": userID},
		options.FindOne().SetProjection(bson.M{"name": 1})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("find intro: %w", err)
	}
	return doc.Name, nil
}

func ownerValue(owner *string) any {
	if owner == nil {
		return nil
	}
	return *owner
}
