// Package keys builds the namespaced identifiers used across the cache
// tiers, the rate limiter, and the local store.
//
// Every key starts with a namespace segment so that keys from different
// concerns can never collide. Construction is pure and deterministic:
// identical input always yields identical output, which is what makes
// cache hits possible in the first place.
package keys

import "strings"

// Namespace prefixes. The prefix is always the first key segment.
const (
	nsMeals     = "meals"
	nsProfile   = "profile"
	nsTag       = "tag"
	nsRateLimit = "ratelimit"
	nsLock      = "lock"
	nsSync      = "sync"
)

const sep = ":"

// join assembles a key from its segments.
func join(parts ...string) string {
	return strings.Join(parts, sep)
}

// Meals returns the cache key for one user's meal log on one date.
// The date is expected in "YYYY-MM-DD" form.
func Meals(userID, date string) string {
	return join(nsMeals, userID, date)
}

// Profile returns the cache key for a user's profile record.
func Profile(userID string) string {
	return join(nsProfile, userID)
}

// Tag returns the key under which a tag's member list is stored.
func Tag(name string) string {
	return join(nsTag, name)
}

// UserMealsTag names the tag grouping every cached meal-log entry that
// belongs to one user, so they can be invalidated together.
func UserMealsTag(userID string) string {
	return join(nsMeals, "user", userID)
}

// UserProfileTag names the tag grouping a user's cached profile entries.
func UserProfileTag(userID string) string {
	return join(nsProfile, "user", userID)
}

// RateLimit returns the sorted-set key for a rate-limit identifier.
func RateLimit(identifier string) string {
	return join(nsRateLimit, identifier)
}

// Lock returns the key for a distributed lock on a resource.
//
// No caller currently acquires these locks; mutation serialization is
// in-process. The builder exists so the key shape is fixed if cross-device
// locking is ever introduced.
func Lock(resource string) string {
	return join(nsLock, resource)
}

// LocalMeals returns the local-store key for a user's meal log on a date.
func LocalMeals(userID, date string) string {
	return join(nsMeals, userID, date)
}

// LocalProfile returns the local-store key for a user's profile.
func LocalProfile(userID string) string {
	return join(nsProfile, userID)
}

// SyncQueue returns the key prefix reserved for the offline sync queue.
// The local store keeps the queue outside generic TTL cleanup.
func SyncQueue() string {
	return nsSync
}
