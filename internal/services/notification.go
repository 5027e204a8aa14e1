// internal/services/notification.go
package services

import (
	"context"
	"errors"
	"sync"

	"reportes-viales/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationStore — запись уведомлений. Хранилище проставляет
// CreatedAt в момент вставки (серверное время записи).
type NotificationStore interface {
	Insert(ctx context.Context, notification *models.Notification) (primitive.ObjectID, error)
}

// NotificationEngine — ядро уведомлений: по одному обработчику на вид
// события. Обработчик никогда не возвращает ошибку источнику триггеров —
// все отказы терминально логируются и изолированы по операциям, чтобы
// не провоцировать повторные доставки на легитимно неуведомляемых событиях.
type NotificationEngine struct {
	resolver      *AudienceResolver
	notifications NotificationStore
	push          PushGateway
}

func NewNotificationEngine(users UserStore, notifications NotificationStore, push PushGateway) *NotificationEngine {
	return &NotificationEngine{
		resolver:      NewAudienceResolver(users),
		notifications: notifications,
		push:          push,
	}
}

// HandleTrigger обрабатывает одну запись в коллекции reports:
// классифицирует переход и запускает обработчики получившихся событий.
// Каждый вызов изолирован — между вызовами нет разделяемого состояния.
func (e *NotificationEngine) HandleTrigger(ctx context.Context, trigger ReportTrigger) {
	events := ClassifyTrigger(trigger)
	if len(events) == 0 {
		// No-op: правка несвязанных полей либо повторная доставка
		logrus.WithFields(logrus.Fields{
			"report_id": trigger.ReportID.Hex(),
			"trigger":   trigger.Kind,
		}).Debug("Запись не породила событий уведомления")
		return
	}

	for _, event := range events {
		e.handleEvent(ctx, event)
	}
}

func (e *NotificationEngine) handleEvent(ctx context.Context, event ReportEvent) {
	log := logrus.WithFields(logrus.Fields{
		"event":     event.Kind,
		"report_id": event.ReportID.Hex(),
	})

	recipients, err := e.resolver.Resolve(ctx, event)
	if err != nil {
		// Не фатально: без ретраев, без паники, обработка события
		// прекращается (например, заявка оценена без назначенного органа)
		if errors.Is(err, ErrNoAuthorityAssigned) {
			log.Warn("Заявка оценена без назначенного органа, уведомление пропущено")
		} else {
			log.WithError(err).Warn("Не удалось разрешить аудиторию события")
		}
		return
	}

	if len(recipients) == 0 {
		// Пустая аудитория — валидный исход, не ошибка
		log.Info("Нет адресатов для события")
		return
	}

	// Строим записи уведомлений (по одной на адресата, всегда персистятся)
	// и собираем push-сообщения для адресатов с токеном в один батч
	notifications := make([]models.Notification, 0, len(recipients))
	var messages []PushMessage

	for _, recipient := range recipients {
		notification := BuildNotification(event, recipient.UserID)
		notifications = append(notifications, notification)

		if recipient.PushToken != "" {
			messages = append(messages, PushMessage{
				To:    recipient.PushToken,
				Sound: "default",
				Title: notification.Title,
				Body:  notification.Body,
				Data:  map[string]string{"reportId": event.ReportID.Hex()},
			})
		}
	}

	// Все записи и единственный вызов шлюза выполняются конкурентно
	// и ожидаются совместно. Отказ любой операции не откатывает и не
	// блокирует остальные: запись в приложении — надёжный фолбэк,
	// даже если push не дошёл совсем.
	var wg sync.WaitGroup

	for i := range notifications {
		wg.Add(1)
		go func(notification models.Notification) {
			defer wg.Done()
			if _, err := e.notifications.Insert(ctx, &notification); err != nil {
				log.WithError(err).WithField("user_id", notification.UserID.Hex()).
					Error("Не удалось сохранить запись уведомления")
			}
		}(notifications[i])
	}

	if len(messages) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.push.Dispatch(ctx, messages); err != nil {
				// Полная недоступность шлюза; ретраев нет — записи
				// уведомлений уже персистятся независимо
				log.WithError(err).Error("Ошибка отправки push-батча")
			}
		}()
	}

	wg.Wait()

	log.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"pushes":     len(messages),
	}).Info("Событие обработано")
}
