package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification — персистентная запись уведомления, видимая пользователю
// в приложении независимо от того, дошёл ли push
type Notification struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	ReportID primitive.ObjectID `bson:"report_id" json:"report_id"`
	Kind     string             `bson:"kind" json:"kind"` // new_report, status_changed, rating_received
	Title    string             `bson:"title" json:"title"`
	Body     string             `bson:"body" json:"body"`

	// Данные события
	ReportCategory  string `bson:"report_category,omitempty" json:"report_category,omitempty"`
	ReportStatus    string `bson:"report_status,omitempty" json:"report_status,omitempty"`
	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Rating          *int   `bson:"rating,omitempty" json:"rating,omitempty"`

	// Флаг прочтения принадлежит клиенту, ядро уведомлений его не меняет
	IsRead    bool       `bson:"is_read" json:"is_read"`
	ReadAt    *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// Виды уведомлений
const (
	NotificationKindNewReport      = "new_report"
	NotificationKindStatusChanged  = "status_changed"
	NotificationKindRatingReceived = "rating_received"
)
