package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type cartRepository struct {
	coll *mongo.Collection
}

func NewCartRepository(db *mongo.Database) storage.CartStorage {
	return &cartRepository{coll: db.Collection(collectionCarts)}
}

func (r *cartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// CreateCart опирается на уникальный индекс userId
func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	cart.Version = 1
	if _, err := r.coll.InsertOne(ctx, cart); err != nil {
		cart.Version = 0
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrCartExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateCart(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": cart.UserID, "version": expectedVersion},
		bson.M{
			"$set": bson.M{
				"items":       cart.Items,
				"totalItems":  cart.TotalItems,
				"totalAmount": cart.TotalAmount,
				"updatedAt":   now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	return nil
}
