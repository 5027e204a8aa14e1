// internal/services/builder.go
package services

import (
	"fmt"

	"reportes-viales/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildNotification — чистый конструктор записи уведомления для адресата.
// Заголовок и текст — детерминированные шаблоны по виду события.
// Персистенцию выполняет обработчик события, не конструктор; CreatedAt
// проставляет хранилище в момент записи.
func BuildNotification(event ReportEvent, recipientID primitive.ObjectID) models.Notification {
	report := event.Report

	notification := models.Notification{
		UserID:         recipientID,
		ReportID:       event.ReportID,
		ReportCategory: report.Category,
		IsRead:         false,
	}

	switch event.Kind {
	case EventNewReport:
		notification.Kind = models.NotificationKindNewReport
		notification.Title = "Nuevo Reporte Asignado"
		notification.Body = fmt.Sprintf("Se ha registrado un nuevo reporte de: %s",
			models.GetCategoryTranslation(report.Category))

	case EventStatusChanged:
		notification.Kind = models.NotificationKindStatusChanged
		notification.Title = "Actualización de tu Reporte"
		notification.ReportStatus = report.Status
		notification.Body = fmt.Sprintf("Tu reporte de %s ha cambiado a: %s",
			models.GetCategoryTranslation(report.Category),
			models.GetStatusTranslation(report.Status))

		if report.Status == models.ReportStatusRejected && report.RejectionReason != "" {
			notification.RejectionReason = report.RejectionReason
			notification.Body = fmt.Sprintf("Tu reporte fue rechazado. Razón: %s", report.RejectionReason)
		}

	case EventRatingReceived:
		notification.Kind = models.NotificationKindRatingReceived
		notification.Title = "¡Te han calificado!"
		notification.Rating = report.Rating

		comment := report.RatingComment
		if comment == "" {
			comment = "Sin comentario"
		}

		rating := 0
		if report.Rating != nil {
			rating = *report.Rating
		}
		notification.Body = fmt.Sprintf("Has recibido %d estrellas ★. Comentario: %s", rating, comment)
	}

	return notification
}
