package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/presence.db"

	// Timezone used for every calendar-day boundary (ledger day keys,
	// today snapshot, period breakdown, peak hours).
	Timezone string

	// Location stamped on check-ins that don't supply one.
	DefaultLocation string

	// Dev-only: member IDs pre-loaded into the memory directory.
	KnownMembers []string

	// Overstay watchdog: flag sessions open longer than this many hours.
	// 0 = watchdog disabled.
	OverstayHours       int
	WatchdogIntervalMin int // how often the watchdog sweeps (default 30)
}

func FromEnv() Config {
	addr := getenvDefault("PRESENCE_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("PRESENCE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("PRESENCE_DB_PATH", "./data/presence.db")

	tz := getenvDefault("PRESENCE_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(tz); err != nil {
		// fail-soft: unknown zone falls back to UTC
		tz = "UTC"
	}

	defaultLoc := getenvDefault("PRESENCE_DEFAULT_LOCATION", "main")

	knownMembers := splitCSV(os.Getenv("PRESENCE_KNOWN_MEMBERS"))

	overstay := getenvInt("PRESENCE_OVERSTAY_HOURS", 8)
	interval := getenvInt("PRESENCE_WATCHDOG_INTERVAL_MIN", 30)

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		Timezone:        tz,
		DefaultLocation: defaultLoc,
		KnownMembers:    knownMembers,

		OverstayHours:       overstay,
		WatchdogIntervalMin: interval,
	}
}

// Location resolves the configured timezone.  FromEnv already validated
// the name, so a failed load only happens if tzdata changed underneath
// us; fall back to UTC rather than crash.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
