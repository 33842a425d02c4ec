package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func TestNotificationDispatcher_DispatchIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	event := func() *entities.Notification {
		return &entities.Notification{
			RecipientID: submitterID,
			Type:        entities.NotificationVerdictPublished,
			Title:       "Verdict",
			Message:     "Your claim was rated false.",
			EntityType:  EntityVerdict,
			EntityID:    "verdict-1",
		}
	}

	created, err := h.notifier.Dispatch(ctx, event())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = h.notifier.Dispatch(ctx, event())
	require.NoError(t, err)
	assert.False(t, created)

	list, err := h.notifier.ListForUser(ctx, submitterID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.NotificationNormal, list[0].Priority)
	assert.Equal(t, 1, h.channel.Count())
}

func TestNotificationDispatcher_ChannelPreferences(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The checker has email notifications off.
	require.NoError(t, h.notifier.NotifyAssignment(ctx, &entities.Claim{ID: "c1", Title: "t"}, checkerID, 1))
	assert.Equal(t, 0, h.channel.Count())

	require.NoError(t, h.notifier.NotifyRejection(ctx, &entities.Claim{ID: "c1", Title: "t", SubmitterID: submitterID}, "spam"))
	assert.Equal(t, 1, h.channel.Count())
	assert.Contains(t, h.channel.Delivered[0].Message, "spam")
}

func TestNotificationDispatcher_ChannelFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.channel.Err = errors.New("smtp timeout")

	created, err := h.notifier.Dispatch(ctx, &entities.Notification{
		RecipientID: submitterID,
		Type:        entities.NotificationSystemAlert,
		EntityType:  EntityAlert,
		EntityID:    "a1",
	})
	require.NoError(t, err)
	assert.True(t, created)

	list, err := h.notifier.ListForUser(ctx, submitterID, true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Deliveries.WithLabelValues("email", "failed")), 1e-9)
}

func TestNotificationDispatcher_StoreFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.db.Errs["SaveNotification"] = errors.New("disk full")

	_, err := h.notifier.Dispatch(context.Background(), &entities.Notification{RecipientID: submitterID})
	assert.Error(t, err)
	assert.Equal(t, 0, h.channel.Count())
}

func TestNotificationDispatcher_RequiresRecipient(t *testing.T) {
	h := newHarness(t)

	_, err := h.notifier.Dispatch(context.Background(), &entities.Notification{Type: entities.NotificationSystemAlert})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestNotificationDispatcher_Broadcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := []string{submitterID, checkerID, adminID}

	n, err := h.notifier.Broadcast(ctx, "maintenance-1", users, "Maintenance", "Down at noon", entities.NotificationLow)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = h.notifier.Broadcast(ctx, "maintenance-1", users, "Maintenance", "Down at noon", entities.NotificationLow)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNotificationDispatcher_MarkRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n := &entities.Notification{RecipientID: submitterID, Type: entities.NotificationSystemAlert, EntityType: EntityAlert, EntityID: "a1"}
	_, err := h.notifier.Dispatch(ctx, n)
	require.NoError(t, err)

	assert.ErrorIs(t, h.notifier.MarkRead(ctx, n.ID, checkerID), entities.ErrNotFound)
	assert.ErrorIs(t, h.notifier.MarkRead(ctx, "missing", submitterID), entities.ErrNotFound)

	require.NoError(t, h.notifier.MarkRead(ctx, n.ID, submitterID))
	first, err := h.db.FindNotificationByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, h.notifier.MarkRead(ctx, n.ID, submitterID))
	second, err := h.db.FindNotificationByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)
}

func TestNotificationDispatcher_MarkAllRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2", "a3"} {
		_, err := h.notifier.Dispatch(ctx, &entities.Notification{
			RecipientID: submitterID, Type: entities.NotificationSystemAlert, EntityType: EntityAlert, EntityID: id,
		})
		require.NoError(t, err)
	}

	n, err := h.notifier.MarkAllRead(ctx, submitterID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	unread, err := h.notifier.ListForUser(ctx, submitterID, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
