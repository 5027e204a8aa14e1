package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reportes-viales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeNotificationStore struct {
	mu      sync.Mutex
	records []models.Notification
	err     error
}

func (f *fakeNotificationStore) Insert(ctx context.Context, notification *models.Notification) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return primitive.NilObjectID, f.err
	}
	f.records = append(f.records, *notification)
	return primitive.NewObjectID(), nil
}

func (f *fakeNotificationStore) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.records...)
}

type fakePushGateway struct {
	mu    sync.Mutex
	calls [][]PushMessage
	err   error
}

func (f *fakePushGateway) Dispatch(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, messages)
	tickets := make([]PushTicket, len(messages))
	for i := range tickets {
		tickets[i] = PushTicket{Status: TicketStatusOK}
	}
	return tickets, nil
}

func (f *fakePushGateway) allCalls() [][]PushMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]PushMessage(nil), f.calls...)
}

func newTestEngine(users UserStore) (*NotificationEngine, *fakeNotificationStore, *fakePushGateway) {
	notifications := &fakeNotificationStore{}
	push := &fakePushGateway{}
	return NewNotificationEngine(users, notifications, push), notifications, push
}

func TestHandleTrigger_NewReportNotifiesSpecialtyAuthorities(t *testing.T) {
	// Два профильных органа, токен устройства только у одного:
	// записи создаются обоим, push уходит одним батчем из одного сообщения
	auth1 := models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[aaa]"}
	auth2 := models.User{ID: primitive.NewObjectID()}

	users := &fakeUserStore{
		authorities: map[string][]models.User{
			models.ReportCategoryPothole: {auth1, auth2},
		},
	}
	engine, notifications, push := newTestEngine(users)

	reportID := primitive.NewObjectID()
	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerCreate,
		ReportID: reportID,
		After: &models.Report{
			ID:       reportID,
			Category: models.ReportCategoryPothole,
			Status:   models.ReportStatusPending,
		},
	})

	records := notifications.all()
	require.Len(t, records, 2)
	recipientIDs := []primitive.ObjectID{records[0].UserID, records[1].UserID}
	assert.Contains(t, recipientIDs, auth1.ID)
	assert.Contains(t, recipientIDs, auth2.ID)
	for _, record := range records {
		assert.Equal(t, models.NotificationKindNewReport, record.Kind)
		assert.Equal(t, reportID, record.ReportID)
	}

	calls := push.allCalls()
	require.Len(t, calls, 1, "ровно один вызов шлюза")
	require.Len(t, calls[0], 1, "push только адресату с токеном")
	assert.Equal(t, auth1.PushToken, calls[0][0].To)
	assert.Equal(t, reportID.Hex(), calls[0][0].Data["reportId"])
}

func TestHandleTrigger_RejectionNotifiesReporter(t *testing.T) {
	reporter := &models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[rep]"}
	users := &fakeUserStore{
		users: map[primitive.ObjectID]*models.User{reporter.ID: reporter},
	}
	engine, notifications, push := newTestEngine(users)

	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, ReporterID: reporter.ID, Category: models.ReportCategoryPothole, Status: models.ReportStatusPending}
	after := &models.Report{
		ID:              reportID,
		ReporterID:      reporter.ID,
		Category:        models.ReportCategoryPothole,
		Status:          models.ReportStatusRejected,
		RejectionReason: "Reporte duplicado",
	}

	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	records := notifications.all()
	require.Len(t, records, 1)
	assert.Equal(t, reporter.ID, records[0].UserID)
	assert.Equal(t, "Tu reporte fue rechazado. Razón: Reporte duplicado", records[0].Body)

	calls := push.allCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, records[0].Body, calls[0][0].Body)
}

func TestHandleTrigger_NoopUpdateProducesNothing(t *testing.T) {
	engine, notifications, push := newTestEngine(&fakeUserStore{})

	reportID := primitive.NewObjectID()
	report := &models.Report{ID: reportID, Status: models.ReportStatusPending}

	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   report,
		After:    &models.Report{ID: reportID, Status: models.ReportStatusPending, Description: "другое"},
	})

	assert.Empty(t, notifications.all())
	assert.Empty(t, push.allCalls())
}

func TestHandleTrigger_RatingNotifiesAssignedAuthorityOnce(t *testing.T) {
	authority := &models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[auth]"}
	users := &fakeUserStore{
		users: map[primitive.ObjectID]*models.User{authority.ID: authority},
	}
	engine, notifications, push := newTestEngine(users)

	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, AuthorityID: &authority.ID, Status: models.ReportStatusCompleted}
	after := &models.Report{
		ID:          reportID,
		AuthorityID: &authority.ID,
		Status:      models.ReportStatusCompleted,
		Category:    models.ReportCategoryDamagedPole,
		Rating:      intPtr(5),
	}

	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	records := notifications.all()
	require.Len(t, records, 1)
	assert.Equal(t, authority.ID, records[0].UserID)
	assert.Equal(t, models.NotificationKindRatingReceived, records[0].Kind)
	require.Len(t, push.allCalls(), 1)

	// Повторная доставка того же состояния — no-op
	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   after,
		After:    after,
	})

	assert.Len(t, notifications.all(), 1)
	assert.Len(t, push.allCalls(), 1)
}

func TestHandleTrigger_RatingWithoutAuthoritySkipped(t *testing.T) {
	engine, notifications, push := newTestEngine(&fakeUserStore{})

	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusCompleted}
	after := &models.Report{ID: reportID, Status: models.ReportStatusCompleted, Rating: intPtr(3)}

	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	assert.Empty(t, notifications.all())
	assert.Empty(t, push.allCalls())
}

func TestHandleTrigger_PushFailureDoesNotBlockRecords(t *testing.T) {
	auth1 := models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[aaa]"}
	users := &fakeUserStore{
		authorities: map[string][]models.User{
			models.ReportCategoryPothole: {auth1},
		},
	}

	notifications := &fakeNotificationStore{}
	push := &fakePushGateway{err: errors.New("gateway down")}
	engine := NewNotificationEngine(users, notifications, push)

	reportID := primitive.NewObjectID()
	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerCreate,
		ReportID: reportID,
		After: &models.Report{
			ID:       reportID,
			Category: models.ReportCategoryPothole,
			Status:   models.ReportStatusPending,
		},
	})

	// Запись в приложении — надёжный фолбэк при недоступном шлюзе
	assert.Len(t, notifications.all(), 1)
}

func TestHandleTrigger_StoreFailureDoesNotBlockPush(t *testing.T) {
	auth1 := models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[aaa]"}
	users := &fakeUserStore{
		authorities: map[string][]models.User{
			models.ReportCategoryPothole: {auth1},
		},
	}

	notifications := &fakeNotificationStore{err: errors.New("db down")}
	push := &fakePushGateway{}
	engine := NewNotificationEngine(users, notifications, push)

	reportID := primitive.NewObjectID()
	engine.HandleTrigger(context.Background(), ReportTrigger{
		Kind:     TriggerCreate,
		ReportID: reportID,
		After: &models.Report{
			ID:       reportID,
			Category: models.ReportCategoryPothole,
			Status:   models.ReportStatusPending,
		},
	})

	require.Len(t, push.allCalls(), 1)
}
