// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"time"

	"reportes-viales/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	// Настройки клиента
	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	// Создание клиента
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}

	// Проверка подключения
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ошибка пинга MongoDB: %w", err)
	}

	database := client.Database(cfg.DatabaseName)

	logrus.WithField("database", cfg.DatabaseName).Info("Успешно подключен к MongoDB")

	return &MongoDB{
		Client:   client,
		Database: database,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("ошибка отключения от MongoDB: %w", err)
	}

	logrus.Info("Отключен от MongoDB")
	return nil
}

// CreateIndexes создает индексы для всех коллекций
// ВАЖНО: Используем bson.D вместо map для сохранения порядка ключей
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	// Создание индексов для пользователей
	userCollection := m.Database.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Составной индекс для выборки аудитории: роль + специализация
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "specialty", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := userCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("ошибка создания индексов для пользователей: %w", err)
	}

	// Создание индексов для заявок
	reportCollection := m.Database.Collection("reports")
	reportIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "category", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "reporter_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "folio", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "authority_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			// Геопространственный индекс для карты заявок
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
	}

	if _, err := reportCollection.Indexes().CreateMany(ctx, reportIndexes); err != nil {
		return fmt.Errorf("ошибка создания индексов для заявок: %w", err)
	}

	// Создание индексов для уведомлений
	notificationCollection := m.Database.Collection("notifications")
	notificationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "report_id", Value: 1}},
		},
	}

	if _, err := notificationCollection.Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("ошибка создания индексов для уведомлений: %w", err)
	}

	logrus.Info("✅ Индексы успешно созданы для всех коллекций")
	return nil
}

// EnableReportPreImages включает pre-images для коллекции reports.
// Без них change stream не отдаёт состояние документа до обновления,
// и классификатор переходов не может работать.
func (m *MongoDB) EnableReportPreImages(ctx context.Context) error {
	cmd := bson.D{
		{Key: "collMod", Value: "reports"},
		{Key: "changeStreamPreAndPostImages", Value: bson.D{{Key: "enabled", Value: true}}},
	}

	if err := m.Database.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("ошибка включения pre-images для reports: %w", err)
	}

	logrus.Info("Pre-images включены для коллекции reports")
	return nil
}
