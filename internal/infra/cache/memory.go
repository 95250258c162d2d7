package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"tg-preview-feed/internal/domain"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache реализует domain.Cache поверх ограниченного LRU.
// Срок жизни хранится на записи и проверяется при чтении: TTL задаётся
// на каждый вызов, а не на кэш целиком. Вытеснение ограничивает рост.
type MemoryCache struct {
	mu      sync.Mutex
	lru     *lru.Cache[string, entry]
	flights map[string]chan struct{}
	now     func() time.Time
}

// NewMemory создаёт кэш с заданной ёмкостью.
func NewMemory(size int) (*MemoryCache, error) {
	inner, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{
		lru:     inner,
		flights: make(map[string]chan struct{}),
		now:     time.Now,
	}, nil
}

// Once выполняет функцию, если ключ ещё не задан. Конкурентные вызовы
// с тем же ключом ждут завершения первого: ключ помечается только при
// успехе, поэтому после ошибки следующий ожидающий повторяет попытку.
func (c *MemoryCache) Once(key string, ttl time.Duration, fn func() error) error {
	for {
		c.mu.Lock()
		if _, ok := c.get(key); ok {
			c.mu.Unlock()
			return nil
		}
		if done, ok := c.flights[key]; ok {
			c.mu.Unlock()
			<-done
			continue
		}
		done := make(chan struct{})
		c.flights[key] = done
		c.mu.Unlock()

		err := fn()

		c.mu.Lock()
		if err == nil {
			c.lru.Add(key, entry{value: []byte("1"), expiresAt: c.now().Add(ttl)})
		}
		delete(c.flights, key)
		c.mu.Unlock()
		close(done)
		return err
	}
}

// Set задаёт значение.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

// Get возвращает значение или domain.ErrCacheMiss.
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return e.value, nil
}

// get возвращает живую запись, удаляя протухшую.
func (c *MemoryCache) get(key string) (entry, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return entry{}, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return entry{}, false
	}
	return e, true
}

var _ domain.Cache = (*MemoryCache)(nil)
