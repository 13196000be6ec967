package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	pkgsqlite "github.com/Chative-core-poc-v1/lexroute/pkg/sqlite"
)

func newSQLiteRepo(t *testing.T) (*SQLiteConversationRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "graph.db")
	cfg := pkgsqlite.Config{Path: path, BusyTimeout: time.Second}
	db, err := cfg.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r, err := NewSQLiteConversationRepository(context.Background(), db)
	require.NoError(t, err)
	return r, path
}

func TestSQLiteRepo_UnknownSessionIsEmpty(t *testing.T) {
	r, _ := newSQLiteRepo(t)

	conv, err := r.LoadConversation(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", conv.SessionKey)
	assert.Empty(t, conv.Turns)
}

func TestSQLiteRepo_AppendPreservesOrder(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AppendTurns(ctx, "s1", model.UserTurn("帮我起草一份服务合同"), model.AssistantTurn("草案")))
	require.NoError(t, r.AppendTurns(ctx, "s1", model.UserTurn("回顾一下"), model.AssistantTurn("- 起草了服务合同")))
	require.NoError(t, r.AppendTurns(ctx, "s1"))

	conv, err := r.LoadConversation(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 4)

	want := []string{"帮我起草一份服务合同", "草案", "回顾一下", "- 起草了服务合同"}
	for i, turn := range conv.Turns {
		assert.Equal(t, want[i], turn.Content)
		assert.False(t, turn.CreatedAt.IsZero())
	}
	assert.Equal(t, model.RoleUser, conv.Turns[0].Role)
	assert.Equal(t, model.RoleAssistant, conv.Turns[1].Role)
}

func TestSQLiteRepo_SurvivesReopen(t *testing.T) {
	r, path := newSQLiteRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AppendTurns(ctx, "s1", model.UserTurn("你好"), model.AssistantTurn("您好")))

	cfg := pkgsqlite.Config{Path: path, BusyTimeout: time.Second}
	db, err := cfg.Open(ctx)
	require.NoError(t, err)
	defer db.Close()

	reopened, err := NewSQLiteConversationRepository(ctx, db)
	require.NoError(t, err)
	conv, err := reopened.LoadConversation(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 2)
}

func TestSQLiteRepo_ListSessionsByRecency(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	require.NoError(t, r.AppendTurns(ctx, "a", model.UserTurn("1")))
	require.NoError(t, r.AppendTurns(ctx, "b", model.UserTurn("2")))
	require.NoError(t, r.AppendTurns(ctx, "a", model.AssistantTurn("3")))

	got, err := r.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].SessionKey)
	assert.Equal(t, 2, got[0].TurnCount)
	assert.Equal(t, "b", got[1].SessionKey)
	assert.True(t, got[0].UpdatedAt.After(got[1].UpdatedAt))

	got, err = r.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteRepo_ConcurrentAppendsKeepSequence(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.AppendTurns(ctx, "shared",
				model.UserTurn(fmt.Sprintf("q%d", i)),
				model.AssistantTurn(fmt.Sprintf("a%d", i)),
			))
		}(i)
	}
	wg.Wait()

	conv, err := r.LoadConversation(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2*n)
	for i := 0; i < len(conv.Turns); i += 2 {
		q := conv.Turns[i].Content
		assert.Equal(t, "a"+q[1:], conv.Turns[i+1].Content)
	}
}

func TestSQLiteRepo_ClosedDBIsWrapped(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	require.NoError(t, r.db.Close())

	err := r.AppendTurns(context.Background(), "s1", model.UserTurn("你好"))
	require.Error(t, err)
	assert.Equal(t, 502, errx.StatusOf(err))

	_, err = r.LoadConversation(context.Background(), "s1")
	require.Error(t, err)
}

func TestSQLiteRepo_RejectsNewerSchema(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	_, err := r.db.Exec(`UPDATE schema_meta SET value = '99' WHERE key = 'schema_version'`)
	require.NoError(t, err)

	_, err = NewSQLiteConversationRepository(context.Background(), r.db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than runtime")
}
