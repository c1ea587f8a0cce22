package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type memoryOffsets struct {
	mu     sync.Mutex
	offset int64
}

func (m *memoryOffsets) GetOffset(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset, nil
}

func (m *memoryOffsets) SaveOffset(_ context.Context, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = offset
	return nil
}

type orderingHandler struct {
	mu     sync.Mutex
	byUser map[int64][]int64
}

func (h *orderingHandler) HandleUpdate(_ context.Context, u *Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u.UpdateID == 99 {
		panic("boom")
	}
	from := u.Sender()
	h.byUser[from.ID] = append(h.byUser[from.ID], u.UpdateID)
	return nil
}

func msgFrom(updateID, userID int64) Update {
	return Update{UpdateID: updateID, Message: &Message{From: &User{ID: userID}, Chat: &Chat{ID: userID, Type: "private"}}}
}

func TestPollingService_ProcessKeepsPerUserOrder(t *testing.T) {
	h := &orderingHandler{byUser: map[int64][]int64{}}
	offsets := &memoryOffsets{}
	s := NewPollingService(nil, h, logger.NewNop(), offsets, 3)

	batch := []Update{
		msgFrom(1, 501), msgFrom(2, 502), msgFrom(3, 501),
		{UpdateID: 4, CallbackQuery: &CallbackQuery{From: &User{ID: 502}}},
		{UpdateID: 5, ChatJoinRequest: &ChatJoinRequest{From: &User{ID: 501}, Chat: &Chat{ID: -100}}},
	}
	s.process(context.Background(), batch)

	assert.Equal(t, []int64{1, 3, 5}, h.byUser[501])
	assert.Equal(t, []int64{2, 4}, h.byUser[502])
	assert.Equal(t, int64(5), offsets.offset)
}

func TestPollingService_SkipsAlreadyProcessed(t *testing.T) {
	h := &orderingHandler{byUser: map[int64][]int64{}}
	s := NewPollingService(nil, h, logger.NewNop(), nil, 2)

	s.process(context.Background(), []Update{msgFrom(7, 501)})
	s.process(context.Background(), []Update{msgFrom(7, 501), msgFrom(8, 501)})

	assert.Equal(t, []int64{7, 8}, h.byUser[501])
	assert.Equal(t, int64(8), s.lastUpdateID)
}

func TestPollingService_PanicDoesNotStopBatch(t *testing.T) {
	h := &orderingHandler{byUser: map[int64][]int64{}}
	s := NewPollingService(nil, h, logger.NewNop(), nil, 1)

	require.NotPanics(t, func() {
		s.process(context.Background(), []Update{msgFrom(99, 501), msgFrom(100, 501)})
	})
	assert.Equal(t, []int64{100}, h.byUser[501])
	assert.Equal(t, int64(100), s.lastUpdateID)
}

func TestPollingService_Affinity(t *testing.T) {
	s := NewPollingService(nil, nil, logger.NewNop(), nil, 4)
	a := msgFrom(1, -7)
	assert.GreaterOrEqual(t, s.getUserAffinity(&a), 0)
	b := Update{UpdateID: 6}
	assert.Equal(t, 2, s.getUserAffinity(&b))
}
