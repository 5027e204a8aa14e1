package services

import (
	"testing"

	"reportes-viales/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildNotification_NewReport(t *testing.T) {
	reportID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	event := ReportEvent{
		Kind:     EventNewReport,
		ReportID: reportID,
		Report: &models.Report{
			ID:       reportID,
			Category: models.ReportCategoryBlockedDrain,
			Status:   models.ReportStatusPending,
		},
	}

	notification := BuildNotification(event, recipientID)

	assert.Equal(t, recipientID, notification.UserID)
	assert.Equal(t, reportID, notification.ReportID)
	assert.Equal(t, models.NotificationKindNewReport, notification.Kind)
	assert.Equal(t, "Nuevo Reporte Asignado", notification.Title)
	assert.Equal(t, "Se ha registrado un nuevo reporte de: Alcantarilla tapada", notification.Body)
	assert.False(t, notification.IsRead)
	assert.True(t, notification.CreatedAt.IsZero(), "CreatedAt проставляет хранилище")
}

func TestBuildNotification_StatusChanged(t *testing.T) {
	event := ReportEvent{
		Kind:     EventStatusChanged,
		ReportID: primitive.NewObjectID(),
		Report: &models.Report{
			Category: models.ReportCategoryPothole,
			Status:   models.ReportStatusInProgress,
		},
	}

	notification := BuildNotification(event, primitive.NewObjectID())

	assert.Equal(t, models.NotificationKindStatusChanged, notification.Kind)
	assert.Equal(t, "Actualización de tu Reporte", notification.Title)
	assert.Equal(t, "Tu reporte de Bache ha cambiado a: En progreso", notification.Body)
	assert.Equal(t, models.ReportStatusInProgress, notification.ReportStatus)
}

func TestBuildNotification_RejectedWithReason(t *testing.T) {
	event := ReportEvent{
		Kind:     EventStatusChanged,
		ReportID: primitive.NewObjectID(),
		Report: &models.Report{
			Category:        models.ReportCategoryPothole,
			Status:          models.ReportStatusRejected,
			RejectionReason: "Reporte duplicado",
		},
	}

	notification := BuildNotification(event, primitive.NewObjectID())

	assert.Equal(t, "Tu reporte fue rechazado. Razón: Reporte duplicado", notification.Body)
	assert.Equal(t, "Reporte duplicado", notification.RejectionReason)
}

func TestBuildNotification_RatingReceived(t *testing.T) {
	event := ReportEvent{
		Kind:     EventRatingReceived,
		ReportID: primitive.NewObjectID(),
		Report: &models.Report{
			Category:      models.ReportCategoryDamagedPole,
			Status:        models.ReportStatusCompleted,
			Rating:        intPtr(4),
			RatingComment: "Buen trabajo",
		},
	}

	notification := BuildNotification(event, primitive.NewObjectID())

	assert.Equal(t, models.NotificationKindRatingReceived, notification.Kind)
	assert.Equal(t, "¡Te han calificado!", notification.Title)
	assert.Equal(t, "Has recibido 4 estrellas ★. Comentario: Buen trabajo", notification.Body)
	assert.Equal(t, 4, *notification.Rating)
}

func TestBuildNotification_RatingWithoutComment(t *testing.T) {
	event := ReportEvent{
		Kind:     EventRatingReceived,
		ReportID: primitive.NewObjectID(),
		Report: &models.Report{
			Category: models.ReportCategoryPothole,
			Status:   models.ReportStatusCompleted,
			Rating:   intPtr(5),
		},
	}

	notification := BuildNotification(event, primitive.NewObjectID())

	assert.Equal(t, "Has recibido 5 estrellas ★. Comentario: Sin comentario", notification.Body)
}
