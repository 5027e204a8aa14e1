// internal/services/stats.go
package services

import (
	"context"
	"fmt"

	"reportes-viales/internal/models"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// StatsService — статистика для админской панели
type StatsService struct {
	reportCollection *mongo.Collection
	userCollection   *mongo.Collection
}

// AuthorityStats — показатели работы одного профильного органа
type AuthorityStats struct {
	AuthorityID   string  `json:"authority_id"`
	TotalAssigned int64   `json:"total_assigned"`
	Completed     int64   `json:"completed"`
	Rejected      int64   `json:"rejected"`
	RatingsCount  int     `json:"ratings_count"`
	AverageRating float64 `json:"average_rating"`
	MedianRating  float64 `json:"median_rating"`
}

// SystemOverview — сводка по всем заявкам
type SystemOverview struct {
	TotalReports int64            `json:"total_reports"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByCategory   map[string]int64 `json:"by_category"`
	TotalUsers   int64            `json:"total_users"`
	Authorities  int64            `json:"authorities"`
}

func NewStatsService(reportCollection, userCollection *mongo.Collection) *StatsService {
	return &StatsService{
		reportCollection: reportCollection,
		userCollection:   userCollection,
	}
}

// GetAuthorityPerformance считает показатели органа: сколько заявок принял,
// завершил, отклонил и как его оценили граждане
func (s *StatsService) GetAuthorityPerformance(ctx context.Context, authorityID primitive.ObjectID) (*AuthorityStats, error) {
	result := &AuthorityStats{AuthorityID: authorityID.Hex()}

	total, err := s.reportCollection.CountDocuments(ctx, bson.M{"authority_id": authorityID})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта заявок органа: %w", err)
	}
	result.TotalAssigned = total

	completed, err := s.reportCollection.CountDocuments(ctx, bson.M{
		"authority_id": authorityID,
		"status":       models.ReportStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта завершённых заявок: %w", err)
	}
	result.Completed = completed

	rejected, err := s.reportCollection.CountDocuments(ctx, bson.M{
		"authority_id": authorityID,
		"status":       models.ReportStatusRejected,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта отклонённых заявок: %w", err)
	}
	result.Rejected = rejected

	// Выбираем только оценённые заявки
	cursor, err := s.reportCollection.Find(ctx, bson.M{
		"authority_id": authorityID,
		"rating":       bson.M{"$exists": true, "$ne": nil},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки оценённых заявок: %w", err)
	}
	defer cursor.Close(ctx)

	var ratings []float64
	for cursor.Next(ctx) {
		var report models.Report
		if err := cursor.Decode(&report); err != nil {
			continue
		}
		if report.Rating != nil {
			ratings = append(ratings, float64(*report.Rating))
		}
	}

	result.RatingsCount = len(ratings)
	if len(ratings) > 0 {
		if mean, err := stats.Mean(ratings); err == nil {
			result.AverageRating = mean
		}
		if median, err := stats.Median(ratings); err == nil {
			result.MedianRating = median
		}
	}

	return result, nil
}

// GetSystemOverview возвращает сводку по заявкам и пользователям
func (s *StatsService) GetSystemOverview(ctx context.Context) (*SystemOverview, error) {
	overview := &SystemOverview{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	total, err := s.reportCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}
	overview.TotalReports = total

	statusPipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	statusCursor, err := s.reportCollection.Aggregate(ctx, statusPipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по статусам: %w", err)
	}
	defer statusCursor.Close(ctx)

	for statusCursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := statusCursor.Decode(&row); err != nil {
			continue
		}
		overview.ByStatus[row.ID] = row.Count
	}

	categoryPipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
	}
	categoryCursor, err := s.reportCollection.Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по категориям: %w", err)
	}
	defer categoryCursor.Close(ctx)

	for categoryCursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := categoryCursor.Decode(&row); err != nil {
			continue
		}
		overview.ByCategory[row.ID] = row.Count
	}

	totalUsers, err := s.userCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	overview.TotalUsers = totalUsers

	authorities, err := s.userCollection.CountDocuments(ctx, bson.M{"role": string(models.RoleAuthority)})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта органов: %w", err)
	}
	overview.Authorities = authorities

	return overview, nil
}
