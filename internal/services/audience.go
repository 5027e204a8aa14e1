// internal/services/audience.go
package services

import (
	"context"
	"errors"
	"fmt"

	"reportes-viales/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ошибки разрешения аудитории. Для ядра уведомлений все они не фатальны:
// обработчик логирует и прекращает обработку события без ретраев.
var (
	ErrRecipientNotFound   = errors.New("recipient account not found")
	ErrNoAuthorityAssigned = errors.New("report has no assigned authority")
	ErrUnknownEventKind    = errors.New("unknown event kind")
)

// Recipient — адресат уведомления. PushToken пуст, если устройство
// не зарегистрировано; запись уведомления создаётся в любом случае.
type Recipient struct {
	UserID    primitive.ObjectID
	PushToken string
}

// UserStore — read-only доступ к учётным записям.
// Резолвер никогда не изменяет аккаунты.
type UserStore interface {
	FindAuthoritiesBySpecialty(ctx context.Context, specialty string) ([]models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// AudienceResolver определяет, кого уведомлять о событии
type AudienceResolver struct {
	users UserStore
}

func NewAudienceResolver(users UserStore) *AudienceResolver {
	return &AudienceResolver{users: users}
}

// Resolve возвращает список адресатов события.
// Пустой список — валидный результат (например, нет профильных органов
// для категории), а не ошибка.
func (r *AudienceResolver) Resolve(ctx context.Context, event ReportEvent) ([]Recipient, error) {
	switch event.Kind {
	case EventNewReport:
		// Все органы, специализирующиеся на категории заявки
		authorities, err := r.users.FindAuthoritiesBySpecialty(ctx, event.Report.Category)
		if err != nil {
			return nil, fmt.Errorf("ошибка выборки органов по специализации %q: %w", event.Report.Category, err)
		}

		recipients := make([]Recipient, 0, len(authorities))
		for _, authority := range authorities {
			recipients = append(recipients, Recipient{
				UserID:    authority.ID,
				PushToken: authority.PushToken,
			})
		}
		return recipients, nil

	case EventStatusChanged:
		// Единственный адресат — автор заявки
		reporter, err := r.users.GetByID(ctx, event.Report.ReporterID)
		if err != nil {
			return nil, fmt.Errorf("автор заявки %s: %w", event.Report.ReporterID.Hex(), ErrRecipientNotFound)
		}
		return []Recipient{{UserID: reporter.ID, PushToken: reporter.PushToken}}, nil

	case EventRatingReceived:
		// Адресат — орган, принявший заявку. Если заявка оценена без
		// назначенного органа, состояние противоречиво: не угадываем
		if event.Report.AuthorityID == nil {
			return nil, ErrNoAuthorityAssigned
		}

		authority, err := r.users.GetByID(ctx, *event.Report.AuthorityID)
		if err != nil {
			return nil, fmt.Errorf("орган %s: %w", event.Report.AuthorityID.Hex(), ErrRecipientNotFound)
		}
		return []Recipient{{UserID: authority.ID, PushToken: authority.PushToken}}, nil
	}

	return nil, ErrUnknownEventKind
}
