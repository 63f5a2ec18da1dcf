package keys

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestKeys_Shape(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"meals", Meals("u1", "2025-03-14"), "meals:u1:2025-03-14"},
		{"profile", Profile("u1"), "profile:u1"},
		{"tag", Tag("meals:user:u1"), "tag:meals:user:u1"},
		{"user meals tag", UserMealsTag("u1"), "meals:user:u1"},
		{"user profile tag", UserProfileTag("u1"), "profile:user:u1"},
		{"rate limit", RateLimit("u1:write"), "ratelimit:u1:write"},
		{"lock", Lock("meals:u1:2025-03-14"), "lock:meals:u1:2025-03-14"},
		{"local meals", LocalMeals("u1", "2025-03-14"), "meals:u1:2025-03-14"},
		{"sync queue", SyncQueue(), "sync"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestKeys_NamespacesDisjoint(t *testing.T) {
	// Keys produced for the same (user, date) tuple by different builders
	// must never collide across namespaced concerns.
	user := "u1"
	set := map[string]string{
		"rate": RateLimit(user),
		"tag":  Tag(user),
		"lock": Lock(user),
		"prof": Profile(user),
	}
	seen := make(map[string]string, len(set))
	for name, k := range set {
		if prev, ok := seen[k]; ok {
			t.Fatalf("key collision between %s and %s: %q", prev, name, k)
		}
		seen[k] = name
	}
}

func TestKeys_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("deterministic under repeated calls", prop.ForAll(
		func(user, date string) bool {
			return Meals(user, date) == Meals(user, date) &&
				RateLimit(user) == RateLimit(user)
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("namespace is always the first segment", prop.ForAll(
		func(user, date string) bool {
			return strings.HasPrefix(Meals(user, date), "meals:") &&
				strings.HasPrefix(Tag(user), "tag:") &&
				strings.HasPrefix(RateLimit(user), "ratelimit:") &&
				strings.HasPrefix(Lock(user), "lock:")
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("distinct users yield distinct keys", prop.ForAll(
		func(a, b, date string) bool {
			if a == b {
				return true
			}
			return Meals(a, date) != Meals(b, date)
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
