package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gymstack/presence/internal/presence/store"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

// Exists: a member counts as present in the directory only while the
// row exists and is active.  Deactivated members can no longer check in
// but their history stays queryable.
func (s *MemberStore) Exists(ctx context.Context, memberID string) (bool, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return false, nil
	}

	var active int
	err := s.db.QueryRowContext(ctx, `
SELECT active FROM members WHERE member_id = ?;
`, memberID).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, store.Unavailable(fmt.Errorf("Exists query: %w", err))
	}
	return active == 1, nil
}
