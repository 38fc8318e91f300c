package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

type entry struct {
	key       string
	answer    entities.Answer
	expiresAt time.Time
}

// Memory is a bounded LRU cache whose entries expire after a TTL.
type Memory struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front is most recent
	items   map[string]*list.Element
	hits    int64
	misses  int64
	now     func() time.Time
	logger  *zap.Logger
}

// NewMemory creates an in-process cache.
func NewMemory(maxSize int, ttl time.Duration, logger *zap.Logger) *Memory {
	if maxSize <= 0 {
		maxSize = 500
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("response cache initialized",
		zap.String("backend", "memory"), zap.Int("max_size", maxSize), zap.Duration("ttl", ttl))
	return &Memory{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
		logger:  logger,
	}
}

func (m *Memory) Get(ctx context.Context, question string) (*entities.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(question)
	el, ok := m.items[key]
	if ok && m.now().After(el.Value.(*entry).expiresAt) {
		m.remove(el)
		ok = false
	}
	if !ok {
		m.misses++
		return nil, false
	}

	m.hits++
	m.order.MoveToFront(el)
	answer := el.Value.(*entry).answer
	answer.Sources = append([]string(nil), answer.Sources...)
	return &answer, true
}

func (m *Memory) Set(ctx context.Context, question string, answer *entities.Answer) {
	if answer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(question)
	e := &entry{key: key, answer: *answer, expiresAt: m.now().Add(m.ttl)}
	e.answer.Sources = append([]string(nil), answer.Sources...)

	if el, ok := m.items[key]; ok {
		el.Value = e
		m.order.MoveToFront(el)
		return
	}
	m.items[key] = m.order.PushFront(e)
	for m.order.Len() > m.maxSize {
		m.remove(m.order.Back())
	}
}

func (m *Memory) remove(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*entry).key)
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order.Init()
	m.items = make(map[string]*list.Element)
	m.logger.Info("response cache cleared")
	return nil
}

// Stats counts live entries only.
func (m *Memory) Stats(ctx context.Context) ports.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiresAt) {
			m.remove(el)
		}
		el = prev
	}
	return ports.CacheStats{
		Backend:    "memory",
		Size:       m.order.Len(),
		MaxSize:    m.maxSize,
		TTLSeconds: int(m.ttl / time.Second),
		Hits:       m.hits,
		Misses:     m.misses,
		HitRate:    hitRate(m.hits, m.misses),
	}
}
