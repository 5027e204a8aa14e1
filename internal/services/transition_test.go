package services

import (
	"testing"

	"reportes-viales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int {
	return &v
}

func TestClassifyTrigger_Create(t *testing.T) {
	reportID := primitive.NewObjectID()
	report := &models.Report{
		ID:       reportID,
		Category: models.ReportCategoryPothole,
		Status:   models.ReportStatusPending,
	}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerCreate,
		ReportID: reportID,
		After:    report,
	})

	require.Len(t, events, 1)
	assert.Equal(t, EventNewReport, events[0].Kind)
	assert.Equal(t, reportID, events[0].ReportID)
	assert.Equal(t, report, events[0].Report)
}

func TestClassifyTrigger_StatusChange(t *testing.T) {
	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusPending}
	after := &models.Report{ID: reportID, Status: models.ReportStatusInProgress}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	require.Len(t, events, 1)
	assert.Equal(t, EventStatusChanged, events[0].Kind)
	assert.Equal(t, after, events[0].Report)
}

func TestClassifyTrigger_UnrelatedFieldChange(t *testing.T) {
	// Правка описания не меняет ни статус, ни оценку — событий нет
	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusPending, Description: "старое"}
	after := &models.Report{ID: reportID, Status: models.ReportStatusPending, Description: "новое"}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	assert.Empty(t, events)
}

func TestClassifyTrigger_RatingReceived(t *testing.T) {
	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusCompleted}
	after := &models.Report{ID: reportID, Status: models.ReportStatusCompleted, Rating: intPtr(5)}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	require.Len(t, events, 1)
	assert.Equal(t, EventRatingReceived, events[0].Kind)
}

func TestClassifyTrigger_RatingRewriteIsNoop(t *testing.T) {
	// Оценка уже была — повторная запись не порождает события
	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusCompleted, Rating: intPtr(3)}
	after := &models.Report{ID: reportID, Status: models.ReportStatusCompleted, Rating: intPtr(5)}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	assert.Empty(t, events)
}

func TestClassifyTrigger_StatusAndRatingTogether(t *testing.T) {
	// Оба поля изменились в одной записи — события независимы
	reportID := primitive.NewObjectID()
	before := &models.Report{ID: reportID, Status: models.ReportStatusInProgress}
	after := &models.Report{ID: reportID, Status: models.ReportStatusCompleted, Rating: intPtr(4)}

	events := ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		Before:   before,
		After:    after,
	})

	require.Len(t, events, 2)
	assert.Equal(t, EventStatusChanged, events[0].Kind)
	assert.Equal(t, EventRatingReceived, events[1].Kind)
}

func TestClassifyTrigger_IncompleteSnapshots(t *testing.T) {
	reportID := primitive.NewObjectID()

	assert.Empty(t, ClassifyTrigger(ReportTrigger{
		Kind:     TriggerCreate,
		ReportID: reportID,
	}))

	assert.Empty(t, ClassifyTrigger(ReportTrigger{
		Kind:     TriggerUpdate,
		ReportID: reportID,
		After:    &models.Report{ID: reportID},
	}))
}
