package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueTestMessage(t *testing.T, s *MemoryStorage, queue string, scheduledAt time.Time) uuid.UUID {
	t.Helper()
	msg := &Message{
		ID:          uuid.New(),
		Queue:       queue,
		Payload:     []byte(`{}`),
		Status:      StatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.CreateMessage(context.Background(), msg))
	return msg.ID
}

func TestMemoryStorage_ClaimBatch_LocksDueMessages(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()
	workerID := uuid.New()

	id := enqueueTestMessage(t, s, "q", time.Now().Add(-time.Second))

	msgs, err := s.ClaimBatch(ctx, workerID, "q", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, StatusProcessing, msgs[0].Status)
	assert.Equal(t, 1, msgs[0].Attempts)
	require.NotNil(t, msgs[0].LockedBy)
	assert.Equal(t, workerID, *msgs[0].LockedBy)

	// Still locked, not claimable by another worker.
	again, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestMemoryStorage_ClaimBatch_SkipsFutureMessages(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	enqueueTestMessage(t, s, "q", time.Now().Add(time.Hour))

	msgs, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryStorage_ClaimBatch_SkipsOtherQueues(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	enqueueTestMessage(t, s, "other", time.Now().Add(-time.Second))

	msgs, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryStorage_ClaimBatch_RespectsLimit(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	first := enqueueTestMessage(t, s, "q", base)
	second := enqueueTestMessage(t, s, "q", base.Add(time.Second))
	enqueueTestMessage(t, s, "q", base.Add(2*time.Second))

	msgs, err := s.ClaimBatch(ctx, uuid.New(), "q", 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first, msgs[0].ID)
	assert.Equal(t, second, msgs[1].ID)
}

func TestMemoryStorage_ClaimBatch_ReclaimsExpiredLocks(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	id := enqueueTestMessage(t, s, "q", time.Now().Add(-time.Minute))

	_, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)

	// Move the clock past the lock expiry.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	msgs, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, 2, msgs[0].Attempts)
}

func TestMemoryStorage_Ack_MarksDone(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	id := enqueueTestMessage(t, s, "q", time.Now().Add(-time.Second))
	_, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Ack(ctx, []uuid.UUID{id}))

	m, ok := s.Message(id)
	require.True(t, ok)
	assert.Equal(t, StatusDone, m.Status)
	assert.Nil(t, m.LockedUntil)
	assert.Nil(t, m.LockedBy)
	require.NotNil(t, m.ProcessedAt)

	// Done messages are never claimable again, even long after.
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	msgs, err := s.ClaimBatch(ctx, uuid.New(), "q", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryStorage_Ack_IgnoresUnknownIDs(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	require.NoError(t, s.Ack(context.Background(), []uuid.UUID{uuid.New()}))
}
