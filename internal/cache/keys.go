package cache

import "strings"

// Keys builds namespaced cache keys: <prefix>:<version>:<entity_type>:<entity_id>.
// The version segment lets a deploy abandon every stale entry at once.
type Keys struct {
	Prefix  string // e.g. "nova"
	Version string // e.g. "v1"
}

func (k Keys) base() string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = "nova"
	}
	version := k.Version
	if version == "" {
		version = "v1"
	}
	return prefix + ":" + version + ":"
}

// Key returns the full cache key for one entity.
func (k Keys) Key(entityType, entityID string) string {
	return k.base() + entityType + ":" + entityID
}

// Pattern returns the full glob for pattern eviction, e.g. ("user", "12*").
func (k Keys) Pattern(entityType, glob string) string {
	return k.base() + entityType + ":" + glob
}

// matchGlob reports whether name matches a pattern containing '*' wildcards.
// Only '*' is supported; that is all invalidation messages carry.
func matchGlob(pattern, name string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == name
	}

	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]

	last := len(parts) - 1
	for i := 1; i < last; i++ {
		idx := strings.Index(name, parts[i])
		if idx < 0 {
			return false
		}
		name = name[idx+len(parts[i]):]
	}

	return strings.HasSuffix(name, parts[last])
}
