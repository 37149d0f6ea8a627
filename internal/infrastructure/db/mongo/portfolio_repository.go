package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

const portfoliosCollection = "portfolios"

type PortfolioRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewPortfolioRepository(db *mongo.Database) *PortfolioRepository {
	return &PortfolioRepository{coll: db.Collection(portfoliosCollection), now: time.Now}
}

// public_slug is omitted rather than null while unallocated so the sparse
// unique index ignores those rows.
type mongoPortfolio struct {
	UserID      string  `bson:"user_id"`
	IsPublished bool    `bson:"is_published"`
	PublicSlug  *string `bson:"public_slug,omitempty"`
	UpdatedAt   int64   `bson:"updated_at"`
}

func (m mongoPortfolio) toDomain() *domain.Portfolio {
	return &domain.Portfolio{
		UserID:      m.UserID,
		IsPublished: m.IsPublished,
		PublicSlug:  m.PublicSlug,
		UpdatedAt:   unixToTime(m.UpdatedAt),
	}
}

// EnsureIndexes creates one-row-per-user and slug uniqueness.
func (r *PortfolioRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "public_slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

func (r *PortfolioRepository) FindByUserID(ctx context.Context, userID string) (*domain.Portfolio, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *PortfolioRepository) FindBySlug(ctx context.Context, slug string) (*domain.Portfolio, error) {
	return r.findOne(ctx, bson.M{"public_slug": slug})
}

func (r *PortfolioRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"public_slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count slug: %w", err)
	}
	return n > 0, nil
}

// Upsert writes p as the single row for p.UserID. A slug already held by
// another user surfaces as domain.ErrSlugTaken.
func (r *PortfolioRepository) Upsert(ctx context.Context, p *domain.Portfolio) (*domain.Portfolio, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoPortfolio{
		UserID:      p.UserID,
		IsPublished: p.IsPublished,
		PublicSlug:  p.PublicSlug,
		UpdatedAt:   r.now().Unix(),
	}

	_, err := r.coll.ReplaceOne(ctx, bson.M{"user_id": p.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, fmt.Errorf("upsert portfolio: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PortfolioRepository) findOne(ctx context.Context, filter bson.M) (*domain.Portfolio, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoPortfolio
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find portfolio: %w", err)
	}
	return doc.toDomain(), nil
}
