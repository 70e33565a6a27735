// Package features resolves named feature flags.
package features

import (
	"strings"
	"sync"
)

const (
	// UseMemoryDataCache switches cached data contexts to serve reads from memory.
	UseMemoryDataCache = "USE_MEMORY_DATA_CACHE"
)

type Provider interface {
	IsEnabled(name string) bool
}

// Static is a fixed flag set. The zero value has every flag off.
type Static struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewStatic(enabled ...string) *Static {
	s := &Static{flags: make(map[string]bool, len(enabled))}
	for _, name := range enabled {
		s.flags[normalize(name)] = true
	}
	return s
}

// Parse builds a Static from a comma or whitespace separated list, the format
// of the FEATURE_FLAGS variable.
func Parse(raw string) *Static {
	return NewStatic(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})...)
}

func (s *Static) IsEnabled(name string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[normalize(name)]
}

func (s *Static) Set(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.flags[normalize(name)] = enabled
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
