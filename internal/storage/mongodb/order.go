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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) storage.OrderStorage {
	return &orderRepository{coll: db.Collection(collectionOrders)}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	order.Version = 1
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		order.Version = 0
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// orderUpdate изменяемые поля заказа; состав и суммы не трогаются
func orderUpdate(order *models.Order, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":        order.Status,
			"payment":       order.Payment,
			"orderHistory":  order.History,
			"stockReserved": order.StockReserved,
			"updatedAt":     now,
		},
		"$inc": bson.M{"version": 1},
	}
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error {
	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": order.ID, "version": expectedVersion},
		orderUpdate(order, now),
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	order.UpdatedAt = now
	return nil
}

func (r *orderRepository) SetInvoiceURL(ctx context.Context, orderID, url string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": orderID, "invoiceUrl": bson.M{"$in": bson.A{"", nil}}},
		bson.M{"$set": bson.M{"invoiceUrl": url, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to set invoice url: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": orderID})
	if err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	if count == 0 {
		return false, storage.ErrOrderNotFound
	}
	return false, nil
}
