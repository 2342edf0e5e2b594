package store

import "context"

// Member is a directory entry.  Only existence (active membership) is
// consumed by the presence core; everything else about members lives
// outside this subsystem.
type Member struct {
	MemberID string
	Name     string
	Active   bool
}

type MemberStore interface {
	Exists(ctx context.Context, memberID string) (bool, error)
}
