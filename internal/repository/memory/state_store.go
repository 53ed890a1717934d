// Package memory holds an in-process StateStore used by tests and
// single-node deployments without a database.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yodateam/faceit-backend/internal/repository"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type stateStore struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func NewStateStore() *stateStore {
	return &stateStore{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (s *stateStore) Get(_ context.Context, key string, out any) error {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return repository.ErrKeyNotFound
	}
	return json.Unmarshal(e.value, out)
}

func (s *stateStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{value: raw}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *stateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *stateStore) List(_ context.Context, prefix string, out any) error {
	now := s.now()

	s.mu.RLock()
	keys := make([]string, 0)
	for k, e := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(s.data[k].value)
	}
	buf.WriteByte(']')
	s.mu.RUnlock()

	return json.Unmarshal(buf.Bytes(), out)
}
