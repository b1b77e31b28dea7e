package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) storage.UserStorage {
	return &userRepository{coll: db.Collection(collectionUsers)}
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

type metalPriceRepository struct {
	coll *mongo.Collection
}

func NewMetalPriceRepository(db *mongo.Database) storage.MetalPriceStorage {
	return &metalPriceRepository{coll: db.Collection(collectionMetalPrices)}
}

func (r *metalPriceRepository) GetPricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error) {
	var price models.MetalPrice
	err := r.coll.FindOne(ctx, bson.M{"metalType": metalType, "purity": purity}).Decode(&price)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return decimal.Zero, storage.ErrMetalPriceNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get metal price: %w", err)
	}
	return price.PricePerGram, nil
}

// catalogRepository товар хранится одним документом вместе с вариантами
type catalogRepository struct {
	coll *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) storage.CatalogStorage {
	return &catalogRepository{coll: db.Collection(collectionProducts)}
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// cachedPricesUpdate строит одно обновление товара и вариантов через arrayFilters
func cachedPricesUpdate(productTotal decimal.Decimal, variantTotals map[string]decimal.Decimal) (bson.M, []interface{}) {
	set := bson.M{
		"totalPrice": productTotal,
		"updatedAt":  time.Now().UTC(),
	}

	variantIDs := make([]string, 0, len(variantTotals))
	for id := range variantTotals {
		variantIDs = append(variantIDs, id)
	}
	sort.Strings(variantIDs)

	filters := make([]interface{}, 0, len(variantIDs))
	for i, id := range variantIDs {
		ident := fmt.Sprintf("v%d", i)
		set["variants.$["+ident+"].totalPrice"] = variantTotals[id]
		filters = append(filters, bson.M{ident + ".id": id})
	}
	return bson.M{"$set": set}, filters
}

func (r *catalogRepository) UpdateCachedPrices(ctx context.Context, productID string, productTotal decimal.Decimal, variantTotals map[string]decimal.Decimal) error {
	update, filters := cachedPricesUpdate(productTotal, variantTotals)
	opts := options.Update()
	if len(filters) > 0 {
		opts.SetArrayFilters(options.ArrayFilters{Filters: filters})
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": productID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update cached prices: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

// stockFilter условие на достаточный остаток товара или варианта
func stockFilter(productID, variantID string, quantity int) (bson.M, string) {
	if variantID == "" {
		return bson.M{
			"_id":           productID,
			"stockQuantity": bson.M{"$gte": quantity},
		}, "stockQuantity"
	}
	return bson.M{
		"_id": productID,
		"variants": bson.M{"$elemMatch": bson.M{
			"id":            variantID,
			"stockQuantity": bson.M{"$gte": quantity},
		}},
	}, "variants.$.stockQuantity"
}

// ReserveStock условный $inc: документ обновится, только если остатка хватает
func (r *catalogRepository) ReserveStock(ctx context.Context, productID, variantID string, quantity int) error {
	filter, field := stockFilter(productID, variantID, quantity)
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: -quantity}})
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrInsufficientStock
	}
	return nil
}

func (r *catalogRepository) ReleaseStock(ctx context.Context, productID, variantID string, quantity int) error {
	filter := bson.M{"_id": productID}
	field := "stockQuantity"
	if variantID != "" {
		filter["variants.id"] = variantID
		field = "variants.$.stockQuantity"
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: quantity}})
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

func (r *catalogRepository) DeactivateProduct(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}
