// Package mongodb хранилище заказов и каталога в MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionUsers       = "users"
	collectionProducts    = "products"
	collectionMetalPrices = "metal_prices"
	collectionCarts       = "carts"
	collectionOrders      = "orders"
)

// Connect подключается к MongoDB и проверяет соединение
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	const op = "storage.mongodb.Connect"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(NewRegistry())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return client, nil
}

// EnsureIndexes создаёт индексы коллекций. Ошибка одного индекса не мешает остальным.
func EnsureIndexes(db *mongo.Database, log *slog.Logger) error {
	var firstErr error
	for _, ensure := range []func(*mongo.Database) error{
		EnsureCartIndexes,
		EnsureOrderIndexes,
		EnsureMetalPriceIndexes,
	} {
		if err := ensure(db); err != nil {
			log.Warn("index creation failed", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// EnsureCartIndexes одна корзина на пользователя
func EnsureCartIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.Collection(collectionCarts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_unique").SetUnique(true),
	})
	return err
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.Collection(collectionOrders).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("userId_createdAt"),
	})
	return err
}

func EnsureMetalPriceIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.Collection(collectionMetalPrices).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "metalType", Value: 1}, {Key: "purity", Value: 1}},
		Options: options.Index().SetName("metalType_purity_unique").SetUnique(true),
	})
	return err
}
