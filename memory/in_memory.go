package memory

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/evalharness/model"
)

// DefaultMaxConversations bounds an InMemoryStore unless configured otherwise.
const DefaultMaxConversations = 1024

// Store persists conversation messages keyed by conversation id.
type Store interface {
	Get(ctx context.Context, conversationID string) ([]model.Message, error)
	Append(ctx context.Context, conversationID string, msgs ...model.Message) error
	Clear(ctx context.Context, conversationID string) error
}

// InMemoryStore is a process-local Store. The least recently used
// conversation is dropped once MaxConversations is exceeded; when
// MaxMessages is positive only the most recent messages of a conversation
// are kept.
//
// Concurrency: Append is serialized by a mutex; reads go straight to the
// thread-safe LRU cache.
type InMemoryStore struct {
	maxMessages int

	mu            sync.Mutex
	conversations *lru.Cache[string, []model.Message]
}

// InMemoryStoreOptions configures an InMemoryStore.
type InMemoryStoreOptions struct {
	MaxMessages      int
	MaxConversations int
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(optFns ...func(o *InMemoryStoreOptions)) *InMemoryStore {
	opts := InMemoryStoreOptions{MaxConversations: DefaultMaxConversations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConversations <= 0 {
		opts.MaxConversations = DefaultMaxConversations
	}
	// only fails for non-positive sizes
	cache, _ := lru.New[string, []model.Message](opts.MaxConversations)
	return &InMemoryStore{maxMessages: opts.MaxMessages, conversations: cache}
}

// Get returns a copy of the conversation history, oldest first.
func (s *InMemoryStore) Get(_ context.Context, conversationID string) ([]model.Message, error) {
	history, _ := s.conversations.Get(conversationID)
	return model.Request{Messages: history}.Clone().Messages, nil
}

// Append adds msgs to the conversation and trims it to MaxMessages.
func (s *InMemoryStore) Append(_ context.Context, conversationID string, msgs ...model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	copied := model.Request{Messages: msgs}.Clone().Messages

	s.mu.Lock()
	defer s.mu.Unlock()
	history, _ := s.conversations.Get(conversationID)
	// stored slices are never appended to in place; readers may hold them
	next := make([]model.Message, 0, len(history)+len(copied))
	next = append(append(next, history...), copied...)
	if s.maxMessages > 0 && len(next) > s.maxMessages {
		next = next[len(next)-s.maxMessages:]
	}
	s.conversations.Add(conversationID, next)
	return nil
}

// Clear drops the conversation.
func (s *InMemoryStore) Clear(_ context.Context, conversationID string) error {
	s.conversations.Remove(conversationID)
	return nil
}

// Len returns the number of stored conversations.
func (s *InMemoryStore) Len() int { return s.conversations.Len() }
