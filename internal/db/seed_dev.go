package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// Optional: member IDs from config to pre-create in dev.
	KnownMembers []string
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	// A couple of starter members so check-ins work out of the box.
	starters := map[string]string{
		"mem-001": "Dev Member One",
		"mem-002": "Dev Member Two",
	}

	for id, name := range starters {
		if err := upsertMember(ctx, db, id, name, now); err != nil {
			return err
		}
	}

	for _, id := range opt.KnownMembers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := upsertMember(ctx, db, id, "", now); err != nil {
			return err
		}
	}

	return nil
}

func upsertMember(ctx context.Context, db *sql.DB, memberID, name string, nowMs int64) error {
	if _, err := db.ExecContext(ctx, `
INSERT INTO members(member_id, name, active, created_at_ms, updated_at_ms)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(member_id) DO UPDATE SET
  active = 1,
  name = CASE WHEN excluded.name != '' THEN excluded.name ELSE members.name END,
  updated_at_ms = excluded.updated_at_ms;
`, memberID, name, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed member %s: %w", memberID, err)
	}
	return nil
}
