package services

import (
	"context"
	"errors"
	"testing"

	"reportes-viales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserStore struct {
	authorities map[string][]models.User
	users       map[primitive.ObjectID]*models.User
	err         error
}

func (f *fakeUserStore) FindAuthoritiesBySpecialty(ctx context.Context, specialty string) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.authorities[specialty], nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func TestResolve_NewReport(t *testing.T) {
	auth1 := models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[aaa]"}
	auth2 := models.User{ID: primitive.NewObjectID()}

	store := &fakeUserStore{
		authorities: map[string][]models.User{
			models.ReportCategoryPothole: {auth1, auth2},
		},
	}
	resolver := NewAudienceResolver(store)

	recipients, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventNewReport,
		Report: &models.Report{Category: models.ReportCategoryPothole},
	})

	require.NoError(t, err)
	require.Len(t, recipients, 2)
	assert.Equal(t, auth1.ID, recipients[0].UserID)
	assert.Equal(t, "ExponentPushToken[aaa]", recipients[0].PushToken)
	assert.Equal(t, auth2.ID, recipients[1].UserID)
	assert.Empty(t, recipients[1].PushToken, "адресат без токена всё равно в списке")
}

func TestResolve_NewReportEmptyAudience(t *testing.T) {
	// Нет профильных органов — пустой список, не ошибка
	resolver := NewAudienceResolver(&fakeUserStore{})

	recipients, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventNewReport,
		Report: &models.Report{Category: models.ReportCategoryDamagedPole},
	})

	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestResolve_StatusChanged(t *testing.T) {
	reporter := &models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[bbb]"}
	store := &fakeUserStore{
		users: map[primitive.ObjectID]*models.User{reporter.ID: reporter},
	}
	resolver := NewAudienceResolver(store)

	recipients, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventStatusChanged,
		Report: &models.Report{ReporterID: reporter.ID},
	})

	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, reporter.ID, recipients[0].UserID)
}

func TestResolve_StatusChangedReporterMissing(t *testing.T) {
	resolver := NewAudienceResolver(&fakeUserStore{users: map[primitive.ObjectID]*models.User{}})

	_, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventStatusChanged,
		Report: &models.Report{ReporterID: primitive.NewObjectID()},
	})

	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestResolve_RatingReceived(t *testing.T) {
	authority := &models.User{ID: primitive.NewObjectID(), PushToken: "ExponentPushToken[ccc]"}
	store := &fakeUserStore{
		users: map[primitive.ObjectID]*models.User{authority.ID: authority},
	}
	resolver := NewAudienceResolver(store)

	recipients, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventRatingReceived,
		Report: &models.Report{AuthorityID: &authority.ID},
	})

	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, authority.ID, recipients[0].UserID)
}

func TestResolve_RatingWithoutAuthority(t *testing.T) {
	resolver := NewAudienceResolver(&fakeUserStore{})

	_, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventRatingReceived,
		Report: &models.Report{},
	})

	assert.ErrorIs(t, err, ErrNoAuthorityAssigned)
}

func TestResolve_UnknownEventKind(t *testing.T) {
	resolver := NewAudienceResolver(&fakeUserStore{})

	_, err := resolver.Resolve(context.Background(), ReportEvent{
		Kind:   EventKind("unknown"),
		Report: &models.Report{},
	})

	assert.ErrorIs(t, err, ErrUnknownEventKind)
}
