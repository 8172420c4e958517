package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"
)

// Cache хранит сериализованные результаты расчетов
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key строит ключ кэша из типа расчета и параметров.
// encoding/json сортирует ключи map, поэтому одинаковые параметры дают один ключ.
// Параметры должны быть уже канонизированы (см. tools.Registry.CanonicalParams),
// иначе лишние поля запроса дают новые ключи.
func Key(calcType string, params map[string]interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return "calc:" + calcType + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

type memoryEntry struct {
	value   string
	expires time.Time
	seq     uint64
}

// DefaultMaxEntries емкость MemoryCache, если maxEntries не задан
const DefaultMaxEntries = 1000

// MemoryCache кэш в памяти процесса, используется без Redis.
// Число записей ограничено: при переполнении сначала удаляются просроченные,
// затем запись, которая истекает раньше всех (среди бессрочных - самая старая).
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]memoryEntry
	maxEntries int
	seq        uint64
	now        func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return "", false
	}
	if e.expired(m.now()) {
		delete(m.data, key)
		return "", false
	}
	return e.value, true
}

func (m *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		if m.sweepLocked() == 0 {
			m.evictLocked()
		}
	}

	m.seq++
	e := memoryEntry{value: value, seq: m.seq}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

// Len число записей, включая еще не удаленные просроченные
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Sweep удаляет просроченные записи и возвращает их число
func (m *MemoryCache) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

// StartSweeper периодически чистит просроченные записи по cron-расписанию
func (m *MemoryCache) StartSweeper(spec string, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := m.Sweep(); n > 0 {
			logger.Debug("expired cache entries removed", "count", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("register cache sweep: %w", err)
	}
	c.Start()
	return c, nil
}

func (m *MemoryCache) sweepLocked() int {
	now := m.now()
	removed := 0
	for key, e := range m.data {
		if e.expired(now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryCache) evictLocked() {
	var (
		victim string
		best   memoryEntry
		found  bool
	)
	for key, e := range m.data {
		if !found || evictsBefore(e, best) {
			victim, best, found = key, e, true
		}
	}
	if found {
		delete(m.data, victim)
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// evictsBefore: бессрочные записи вытесняются последними, при равенстве - более старая
func evictsBefore(a, b memoryEntry) bool {
	switch {
	case a.expires.IsZero() != b.expires.IsZero():
		return b.expires.IsZero()
	case !a.expires.Equal(b.expires):
		return a.expires.Before(b.expires)
	default:
		return a.seq < b.seq
	}
}
