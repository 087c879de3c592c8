package deliverylog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder_RecordAndList(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder()
	ctx := context.Background()
	notifID := uuid.New()

	require.NoError(t, rec.Record(ctx, Record{
		NotificationID: notifID,
		UserID:         "u1",
		Channel:        ChannelEmail,
		Provider:       "postmark",
		Status:         StatusSuccess,
	}))
	require.NoError(t, rec.Record(ctx, Record{
		NotificationID: notifID,
		UserID:         "u1",
		Channel:        ChannelPush,
		Provider:       "onesignal",
		Status:         StatusFailure,
		ErrorMessage:   "all included players are not subscribed",
	}))
	require.NoError(t, rec.Record(ctx, Record{
		NotificationID: uuid.New(),
		UserID:         "u2",
		Channel:        ChannelEmail,
		Provider:       "postmark",
		Status:         StatusSuccess,
	}))

	records, err := rec.ListByNotification(ctx, notifID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, ChannelEmail, records[0].Channel)
	assert.Equal(t, StatusSuccess, records[0].Status)
	assert.NotEqual(t, uuid.Nil, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())

	assert.Equal(t, ChannelPush, records[1].Channel)
	assert.Equal(t, StatusFailure, records[1].Status)
	assert.Contains(t, records[1].ErrorMessage, "not subscribed")
}
