// internal/database/notification_store.go
package database

import (
	"context"
	"fmt"
	"time"

	"reportes-viales/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoNotificationStore — запись уведомлений. Каждая вставка создаёт
// новый документ с новым id, разделяемое состояние не мутируется.
type MongoNotificationStore struct {
	collection *mongo.Collection
}

func NewMongoNotificationStore(collection *mongo.Collection) *MongoNotificationStore {
	return &MongoNotificationStore{collection: collection}
}

// Insert сохраняет запись уведомления. Время создания проставляется
// в момент записи, а не берётся из часов клиента.
func (s *MongoNotificationStore) Insert(ctx context.Context, notification *models.Notification) (primitive.ObjectID, error) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	result, err := s.collection.InsertOne(ctx, notification)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("ошибка записи уведомления: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("неожиданный тип id вставленного уведомления")
	}

	notification.ID = id
	return id, nil
}
