// Package featureflags evaluates on/off and percentage rollout flags.
package featureflags

import (
	"context"
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// OverridesKey is the Redis hash holding runtime flag overrides.
const OverridesKey = "feature_flags"

// Manager evaluates feature flags defined in a simple key=value list, with
// optional runtime overrides kept in Redis.
// Example: "pro_subscriptions=on,user_search=25%,legacy_feed=off"
type Manager struct {
	mu        sync.RWMutex
	flags     map[string]string
	overrides map[string]string
	rdb       *redis.Client
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	return &Manager{flags: parse(raw), overrides: map[string]string{}}
}

// WithOverrides attaches a Redis client used by Set and Refresh.
func (m *Manager) WithOverrides(rdb *redis.Client) *Manager {
	m.rdb = rdb
	return m
}

func parse(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func validValue(value string) bool {
	switch value {
	case "on", "true", "1", "off", "false", "0":
		return true
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		n, err := strconv.Atoi(pct)
		return err == nil && n >= 0 && n <= 100
	}
	return false
}

func (m *Manager) value(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.overrides[name]; ok {
		return v, true
	}
	v, ok := m.flags[name]
	return v, ok
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.value(normalize(name))
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < pct
	}

	return false
}

// Set stores a runtime override. It is persisted to Redis when one is
// attached and applied locally either way.
func (m *Manager) Set(ctx context.Context, name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" || !validValue(value) {
		return fmt.Errorf("invalid flag %q=%q", name, value)
	}
	if m.rdb != nil {
		if err := m.rdb.HSet(ctx, OverridesKey, name, value).Err(); err != nil {
			return fmt.Errorf("store override: %w", err)
		}
	}
	m.mu.Lock()
	m.overrides[name] = value
	m.mu.Unlock()
	return nil
}

// Clear drops a runtime override so the configured value applies again.
func (m *Manager) Clear(ctx context.Context, name string) error {
	name = normalize(name)
	if m.rdb != nil {
		if err := m.rdb.HDel(ctx, OverridesKey, name).Err(); err != nil {
			return fmt.Errorf("clear override: %w", err)
		}
	}
	m.mu.Lock()
	delete(m.overrides, name)
	m.mu.Unlock()
	return nil
}

// Refresh reloads overrides from Redis. Invalid stored values are skipped.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	stored, err := m.rdb.HGetAll(ctx, OverridesKey).Result()
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	next := make(map[string]string, len(stored))
	for k, v := range stored {
		k, v = normalize(k), normalize(v)
		if k != "" && validValue(v) {
			next[k] = v
		}
	}
	m.mu.Lock()
	m.overrides = next
	m.mu.Unlock()
	return nil
}

// Raw returns a copy of the effective flag values.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags)+len(m.overrides))
	maps.Copy(out, m.flags)
	maps.Copy(out, m.overrides)
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name := range raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
