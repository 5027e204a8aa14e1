// internal/services/watcher.go
package services

import (
	"context"
	"time"

	"reportes-viales/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Таймаут на обработку одного события триггера. Работа на вызов
// ограничена (один запрос аудитории, N записей, один вызов шлюза),
// поэтому укладывается с запасом.
const triggerTimeout = 30 * time.Second

// reportChangeEvent — документ change stream для коллекции reports
type reportChangeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument             *models.Report `bson:"fullDocument"`
	FullDocumentBeforeChange *models.Report `bson:"fullDocumentBeforeChange"`
}

// ReportWatcher — источник триггеров: подписка на change stream коллекции
// reports. Семантика доставки at-least-once: повторная доставка одного
// перехода допустима и приводит максимум к дублю записи уведомления.
type ReportWatcher struct {
	reports *mongo.Collection
	engine  *NotificationEngine
}

func NewReportWatcher(reports *mongo.Collection, engine *NotificationEngine) *ReportWatcher {
	return &ReportWatcher{
		reports: reports,
		engine:  engine,
	}
}

// Run слушает change stream до отмены контекста. При ошибке потока
// переподключается с паузой; обрыв подписки не роняет сервер.
func (w *ReportWatcher) Run(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{
				{Key: "$in", Value: bson.A{"insert", "update", "replace"}},
			}},
		}}},
	}

	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		stream, err := w.reports.Watch(ctx, pipeline, opts)
		if err != nil {
			logrus.WithError(err).Error("Не удалось открыть change stream для reports")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				continue
			}
		}

		logrus.Info("Подписка на изменения коллекции reports открыта")
		w.consume(ctx, stream)
		stream.Close(context.Background())
	}
}

func (w *ReportWatcher) consume(ctx context.Context, stream *mongo.ChangeStream) {
	for stream.Next(ctx) {
		var event reportChangeEvent
		if err := stream.Decode(&event); err != nil {
			// Неразборчивый документ — пропускаем, не падаем
			logrus.WithError(err).Warn("Не удалось декодировать событие change stream")
			continue
		}

		trigger, ok := w.toTrigger(event)
		if !ok {
			continue
		}

		// Каждый вызов обработчика независим и ограничен по времени
		triggerCtx, cancel := context.WithTimeout(ctx, triggerTimeout)
		w.engine.HandleTrigger(triggerCtx, trigger)
		cancel()
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Change stream прерван, переподключение")
	}
}

// toTrigger превращает событие change stream в триггер ядра.
// Битые или неполные события пропускаются с записью в лог.
func (w *ReportWatcher) toTrigger(event reportChangeEvent) (ReportTrigger, bool) {
	log := logrus.WithFields(logrus.Fields{
		"report_id": event.DocumentKey.ID.Hex(),
		"operation": event.OperationType,
	})

	if event.FullDocument == nil {
		log.Warn("Событие без снимка документа, пропущено")
		return ReportTrigger{}, false
	}

	switch event.OperationType {
	case "insert":
		return ReportTrigger{
			Kind:     TriggerCreate,
			ReportID: event.DocumentKey.ID,
			After:    event.FullDocument,
		}, true

	case "update", "replace":
		if event.FullDocumentBeforeChange == nil {
			// Без pre-image классификатор не может сравнить состояния
			log.Warn("Обновление без pre-image, событие пропущено")
			return ReportTrigger{}, false
		}
		return ReportTrigger{
			Kind:     TriggerUpdate,
			ReportID: event.DocumentKey.ID,
			Before:   event.FullDocumentBeforeChange,
			After:    event.FullDocument,
		}, true
	}

	return ReportTrigger{}, false
}
