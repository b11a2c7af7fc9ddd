package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/core/ai/llm/llmtest"
	"nutrition-api/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// blockingCompleter 在 release 關閉前卡住
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func newBlocking() *blockingCompleter {
	return &blockingCompleter{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	b.started <- struct{}{}
	<-b.release
	return llmtest.Reply("ok"), nil
}

func TestManager_PassesThrough(t *testing.T) {
	completer := new(llmtest.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(`{"ok":true}`), nil).Once()

	m := NewManager(completer, config.LLMConfig{MaxConcurrent: 2, MaxQueue: 4})
	got, err := m.Complete(context.Background(), llm.Request{Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got.Content)

	status := m.GetQueueStatus()
	assert.Equal(t, int64(1), status.ProcessedCount)
	assert.Equal(t, 0, status.InFlight)
	assert.Equal(t, 2, status.Workers)
	completer.AssertExpectations(t)
}

func TestManager_RejectsWhenQueueFull(t *testing.T) {
	blocking := newBlocking()
	m := NewManager(blocking, config.LLMConfig{MaxConcurrent: 1, MaxQueue: 0})

	done := make(chan error, 1)
	go func() {
		_, err := m.Complete(context.Background(), llm.Request{})
		done <- err
	}()
	<-blocking.started

	_, err := m.Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(blocking.release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), m.GetQueueStatus().ProcessedCount)
}

func TestManager_WaitingRequestHonoursContext(t *testing.T) {
	blocking := newBlocking()
	m := NewManager(blocking, config.LLMConfig{MaxConcurrent: 1, MaxQueue: 1})

	go func() { _, _ = m.Complete(context.Background(), llm.Request{}) }()
	<-blocking.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Complete(ctx, llm.Request{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, m.GetQueueStatus().Waiting)

	close(blocking.release)
}
