// internal/services/transition.go
package services

import (
	"reportes-viales/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerKind — вид записи, породившей событие change stream
type TriggerKind string

const (
	TriggerCreate TriggerKind = "create"
	TriggerUpdate TriggerKind = "update"
)

// ReportTrigger — одна запись в коллекции reports, как её отдал change stream.
// Before равен nil при создании документа.
type ReportTrigger struct {
	Kind     TriggerKind
	ReportID primitive.ObjectID
	Before   *models.Report
	After    *models.Report
}

// EventKind — вид события жизненного цикла заявки
type EventKind string

const (
	EventNewReport      EventKind = "new_report"
	EventStatusChanged  EventKind = "status_changed"
	EventRatingReceived EventKind = "rating_received"
)

// ReportEvent — классифицированное событие. Report — снимок после записи.
type ReportEvent struct {
	Kind     EventKind
	ReportID primitive.ObjectID
	Report   *models.Report
}

// ClassifyTrigger — чистая функция-классификатор переходов.
// По паре состояний до/после определяет, какие события произошли.
// Правка несвязанных полей (например, описания) не порождает событий.
//
// Одна запись может породить одновременно status_changed и rating_received,
// если оба поля изменились в одном обновлении; события независимы.
func ClassifyTrigger(trigger ReportTrigger) []ReportEvent {
	if trigger.After == nil {
		return nil
	}

	switch trigger.Kind {
	case TriggerCreate:
		// Заявка всегда создаётся в статусе pending; повторного
		// create для одного id источник триггеров не порождает
		return []ReportEvent{{
			Kind:     EventNewReport,
			ReportID: trigger.ReportID,
			Report:   trigger.After,
		}}

	case TriggerUpdate:
		if trigger.Before == nil {
			return nil
		}

		var events []ReportEvent

		if trigger.Before.Status != trigger.After.Status {
			events = append(events, ReportEvent{
				Kind:     EventStatusChanged,
				ReportID: trigger.ReportID,
				Report:   trigger.After,
			})
		}

		// Оценка значима только при переходе "не было -> появилась".
		// Повторная запись той же (или другой) оценки — no-op:
		// заявку можно осмысленно оценить один раз.
		if trigger.Before.Rating == nil && trigger.After.Rating != nil {
			events = append(events, ReportEvent{
				Kind:     EventRatingReceived,
				ReportID: trigger.ReportID,
				Report:   trigger.After,
			})
		}

		return events
	}

	return nil
}
