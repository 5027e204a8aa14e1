// internal/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report — заявка гражданина о дорожном дефекте
type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ReporterID primitive.ObjectID `bson:"reporter_id" json:"reporter_id" validate:"required"`

	// Folio — публичный номер для отслеживания заявки
	Folio string `bson:"folio" json:"folio"`

	// Основная информация
	Category    string `bson:"category" json:"category" validate:"required,oneof=pothole blocked_drain damaged_pole"`
	Description string `bson:"description" json:"description" validate:"required,min=10,max=1000"`
	PhotoURL    string `bson:"photo_url" json:"photo_url" validate:"required,url"`

	// Местоположение
	Location Location `bson:"location" json:"location" validate:"required"`
	Address  string   `bson:"address" json:"address"`

	// Статус и обработка
	Status           string              `bson:"status" json:"status"` // pending, in_progress, completed, rejected
	AuthorityID      *primitive.ObjectID `bson:"authority_id,omitempty" json:"authority_id,omitempty"`
	RejectionReason  string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	SolutionPhotoURL string              `bson:"solution_photo_url,omitempty" json:"solution_photo_url,omitempty"`

	// Оценка работы (выставляется один раз после завершения)
	Rating        *int       `bson:"rating,omitempty" json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	RatingComment string     `bson:"rating_comment,omitempty" json:"rating_comment,omitempty"`
	RatedAt       *time.Time `bson:"rated_at,omitempty" json:"rated_at,omitempty"`

	// Журнал активности (только добавление)
	ActivityLog []ActivityLogEntry `bson:"activity_log" json:"activity_log"`

	// Временные метки
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	AcceptedAt  *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// ActivityLogEntry — одна запись журнала смены статуса
type ActivityLogEntry struct {
	Status    string             `bson:"status" json:"status"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	ActorID   primitive.ObjectID `bson:"actor_id" json:"actor_id"`
}

// Категории дефектов
const (
	ReportCategoryPothole      = "pothole"       // Bache
	ReportCategoryBlockedDrain = "blocked_drain" // Alcantarilla tapada
	ReportCategoryDamagedPole  = "damaged_pole"  // Poste dañado
)

// Статусы заявки
const (
	ReportStatusPending    = "pending"     // En espera
	ReportStatusInProgress = "in_progress" // En progreso
	ReportStatusCompleted  = "completed"   // Completado
	ReportStatusRejected   = "rejected"    // Rechazado
)

// AllReportCategories возвращает список всех категорий
func AllReportCategories() []string {
	return []string{
		ReportCategoryPothole,
		ReportCategoryBlockedDrain,
		ReportCategoryDamagedPole,
	}
}

// IsValidCategory проверяет, что категория известна системе
func IsValidCategory(category string) bool {
	switch category {
	case ReportCategoryPothole, ReportCategoryBlockedDrain, ReportCategoryDamagedPole:
		return true
	}
	return false
}

// IsValidStatus проверяет валидность статуса
func IsValidStatus(status string) bool {
	switch status {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted, ReportStatusRejected:
		return true
	}
	return false
}

// Методы жизненного цикла заявки

func (r *Report) IsPending() bool {
	return r.Status == ReportStatusPending
}

func (r *Report) IsInProgress() bool {
	return r.Status == ReportStatusInProgress
}

func (r *Report) IsCompleted() bool {
	return r.Status == ReportStatusCompleted
}

// IsTerminal — завершённые и отклонённые заявки больше не меняют статус
func (r *Report) IsTerminal() bool {
	return r.Status == ReportStatusCompleted || r.Status == ReportStatusRejected
}

// CanTransitionTo проверяет допустимость перехода статуса.
// pending -> {in_progress, rejected}; in_progress -> {completed}.
// Переходы назад запрещены.
func (r *Report) CanTransitionTo(newStatus string) bool {
	switch r.Status {
	case ReportStatusPending:
		return newStatus == ReportStatusInProgress || newStatus == ReportStatusRejected
	case ReportStatusInProgress:
		return newStatus == ReportStatusCompleted
	}
	return false
}

// HasRating — оценка уже выставлена (повторная оценка запрещена)
func (r *Report) HasRating() bool {
	return r.Rating != nil
}

// CanBeRatedBy — оценить может только автор и только завершённую заявку
func (r *Report) CanBeRatedBy(userID primitive.ObjectID) bool {
	return r.ReporterID == userID && r.IsCompleted() && !r.HasRating()
}

// AppendActivity добавляет запись в журнал активности
func (r *Report) AppendActivity(status string, actorID primitive.ObjectID, at time.Time) {
	r.ActivityLog = append(r.ActivityLog, ActivityLogEntry{
		Status:    status,
		Timestamp: at,
		ActorID:   actorID,
	})
}

// GetDaysOpen возвращает количество дней с момента создания до завершения
func (r *Report) GetDaysOpen() int {
	if r.IsCompleted() && r.CompletedAt != nil {
		return int(r.CompletedAt.Sub(r.CreatedAt).Hours() / 24)
	}
	return int(time.Since(r.CreatedAt).Hours() / 24)
}

// Получение переводов категорий для UI
func GetCategoryTranslation(category string) string {
	translations := map[string]string{
		ReportCategoryPothole:      "Bache",
		ReportCategoryBlockedDrain: "Alcantarilla tapada",
		ReportCategoryDamagedPole:  "Poste dañado",
	}
	if translation, exists := translations[category]; exists {
		return translation
	}
	return category
}

// Получение переводов статусов для UI
func GetStatusTranslation(status string) string {
	translations := map[string]string{
		ReportStatusPending:    "En espera",
		ReportStatusInProgress: "En progreso",
		ReportStatusCompleted:  "Completado",
		ReportStatusRejected:   "Rechazado",
	}
	if translation, exists := translations[status]; exists {
		return translation
	}
	return status
}
