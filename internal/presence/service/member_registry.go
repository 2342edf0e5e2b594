package service

import (
	"context"
	"strings"

	"github.com/gymstack/presence/internal/presence/store"
)

// MemberRegistry is the presence core's view of the member directory.
// Everything else about members (profiles, subscriptions, billing) is
// someone else's problem.
type MemberRegistry struct {
	store store.MemberStore
}

func NewMemberRegistry(st store.MemberStore) *MemberRegistry {
	return &MemberRegistry{store: st}
}

func (r *MemberRegistry) Exists(ctx context.Context, memberID string) (bool, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return false, nil
	}
	return r.store.Exists(ctx, memberID)
}
