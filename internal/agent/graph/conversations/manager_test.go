package conversations

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
)

type stubRepo struct {
	conv      *model.Conversation
	loadErr   error
	appendErr error
	appended  []model.Turn
}

func (s *stubRepo) AppendTurns(_ context.Context, _ string, turns ...model.Turn) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, turns...)
	return nil
}

func (s *stubRepo) LoadConversation(_ context.Context, _ string) (*model.Conversation, error) {
	return s.conv, s.loadErr
}

func (s *stubRepo) ListSessions(context.Context, int) ([]model.SessionSummary, error) {
	return nil, nil
}

func testConfig() model.ConversationConfig {
	var cfg model.ConversationConfig
	cfg.Router.MaxTurns = 1
	cfg.Memory.MaxTurns = 2
	cfg.Lookup.MaxTurns = 3
	return cfg
}

func TestFormatTurns(t *testing.T) {
	turns := []model.Turn{
		model.UserTurn("你好"),
		model.AssistantTurn("  你好，请问有什么可以帮您？ "),
		model.UserTurn("   "),
		model.UserTurn("起草合同"),
	}
	assert.Equal(t, "user: 你好\nassistant: 你好，请问有什么可以帮您？\nuser: 起草合同", FormatTurns(turns))
	assert.Equal(t, "", FormatTurns(nil))
}

func TestWindows(t *testing.T) {
	mm := NewMessagesManager(&stubRepo{}, testConfig())
	var c model.Conversation
	for i := 0; i < 5; i++ {
		c = c.Append(model.UserTurn("u"), model.AssistantTurn("a"))
	}
	assert.Len(t, mm.RouterWindow(c), 2)
	assert.Len(t, mm.MemoryWindow(c), 4)
	assert.Len(t, mm.LookupWindow(c), 6)
}

func TestLoad_UnknownSessionIsEmpty(t *testing.T) {
	mm := NewMessagesManager(&stubRepo{}, testConfig())
	conv, err := mm.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", conv.SessionKey)
	assert.Zero(t, conv.Len())
}

func TestLoadAndCommit_FailuresAreStateUnavailable(t *testing.T) {
	cause := errors.New("database is locked")
	mm := NewMessagesManager(&stubRepo{loadErr: cause, appendErr: cause}, testConfig())

	_, err := mm.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, errx.ErrStateUnavailable)
	assert.ErrorIs(t, err, cause)

	err = mm.Commit(context.Background(), "s1", []model.Turn{model.UserTurn("q")})
	assert.ErrorIs(t, err, errx.ErrStateUnavailable)
}

func TestCommit_AppendsInOrder(t *testing.T) {
	repo := &stubRepo{}
	mm := NewMessagesManager(repo, testConfig())

	require.NoError(t, mm.Commit(context.Background(), "s1", nil))
	assert.Empty(t, repo.appended)

	require.NoError(t, mm.Commit(context.Background(), "s1", []model.Turn{model.UserTurn("q"), model.AssistantTurn("a")}))
	require.Len(t, repo.appended, 2)
	assert.Equal(t, model.RoleUser, repo.appended[0].Role)
	assert.Equal(t, model.RoleAssistant, repo.appended[1].Role)
}

func TestLockSession_SerialisesSameKey(t *testing.T) {
	mm := NewMessagesManager(&stubRepo{}, testConfig())

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := mm.LockSession("same")
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, mm.locks.locks)
}

func TestLockSession_DifferentKeysDoNotBlock(t *testing.T) {
	mm := NewMessagesManager(&stubRepo{}, testConfig())
	unlockA := mm.LockSession("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := mm.LockSession("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
