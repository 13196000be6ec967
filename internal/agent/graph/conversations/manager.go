package conversations

import (
	"context"
	"strings"
	"sync"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	routerMaxTurns   int
	memoryMaxTurns   int
	lookupMaxTurns   int

	locks *keyedMutex
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		routerMaxTurns:   config.Router.MaxTurns,
		memoryMaxTurns:   config.Memory.MaxTurns,
		lookupMaxTurns:   config.Lookup.MaxTurns,
		locks:            newKeyedMutex(),
	}
}

// LockSession blocks until no other request holds sessionKey and returns the
// release func. Load and commit of one request happen under this lock.
func (cm *MessagesManager) LockSession(sessionKey string) func() {
	return cm.locks.Lock(sessionKey)
}

// Load reads the session's conversation. Any repository failure is fatal to
// the request and is reported as state unavailable.
func (cm *MessagesManager) Load(ctx context.Context, sessionKey string) (model.Conversation, error) {
	conv, err := cm.conversationRepo.LoadConversation(ctx, sessionKey)
	if err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to load conversation")
		return model.Conversation{}, errx.WrapState(err)
	}
	if conv == nil {
		return model.Conversation{SessionKey: sessionKey}, nil
	}
	conv.SessionKey = sessionKey
	return *conv, nil
}

// Commit appends this request's turns in order.
func (cm *MessagesManager) Commit(ctx context.Context, sessionKey string, turns []model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := cm.conversationRepo.AppendTurns(ctx, sessionKey, turns...); err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Int("turns", len(turns)).Msg("failed to commit turns")
		return errx.WrapState(err)
	}
	return nil
}

// =========== Windows ===========
func (cm *MessagesManager) RouterWindow(c model.Conversation) []model.Turn {
	return c.Window(cm.routerMaxTurns)
}

func (cm *MessagesManager) MemoryWindow(c model.Conversation) []model.Turn {
	return c.Window(cm.memoryMaxTurns)
}

func (cm *MessagesManager) LookupWindow(c model.Conversation) []model.Turn {
	return c.Window(cm.lookupMaxTurns)
}

// ====================== Formatting ======================

// FormatTurns renders turns as "role: content" lines for prompt construction.
func FormatTurns(turns []model.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// ====================== Session locks ======================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
