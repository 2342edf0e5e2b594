package memory

import (
	"context"
	"strings"
	"sync"
)

// MemberStore is a fixed in-memory member directory for tests and dev,
// seeded from config.
type MemberStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
}

func NewMemberStore(memberIDs []string) *MemberStore {
	k := make(map[string]struct{}, len(memberIDs))
	for _, m := range memberIDs {
		m = strings.TrimSpace(m)
		if m != "" {
			k[m] = struct{}{}
		}
	}
	return &MemberStore{known: k}
}

func (s *MemberStore) Exists(_ context.Context, memberID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[memberID]
	return ok, nil
}

// Add registers a member.  Test-only helper.
func (s *MemberStore) Add(memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[memberID] = struct{}{}
}
