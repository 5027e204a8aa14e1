// internal/database/user_store.go
package database

import (
	"context"
	"fmt"

	"reportes-viales/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserStore — read-only доступ ядра уведомлений к учётным записям
type MongoUserStore struct {
	collection *mongo.Collection
}

func NewMongoUserStore(collection *mongo.Collection) *MongoUserStore {
	return &MongoUserStore{collection: collection}
}

// FindAuthoritiesBySpecialty возвращает все органы со специализацией,
// совпадающей с категорией заявки. Пустой результат валиден.
func (s *MongoUserStore) FindAuthoritiesBySpecialty(ctx context.Context, specialty string) ([]models.User, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"role":      string(models.RoleAuthority),
		"specialty": specialty,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки органов: %w", err)
	}
	defer cursor.Close(ctx)

	var authorities []models.User
	if err := cursor.All(ctx, &authorities); err != nil {
		return nil, fmt.Errorf("ошибка декодирования органов: %w", err)
	}

	return authorities, nil
}

func (s *MongoUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, fmt.Errorf("пользователь %s: %w", id.Hex(), err)
	}
	return &user, nil
}
