package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	k := Keys{Prefix: "nova", Version: "v1"}
	assert.Equal(t, "nova:v1:user:123", k.Key("user", "123"))
	assert.Equal(t, "nova:v1:feed:*", k.Pattern("feed", "*"))
}

func TestKeyDefaults(t *testing.T) {
	var k Keys
	assert.Equal(t, "nova:v1:user:123", k.Key("user", "123"))
}

func TestKeyVersionSeparatesGenerations(t *testing.T) {
	v1 := Keys{Version: "v1"}
	v2 := Keys{Version: "v2"}
	assert.NotEqual(t, v1.Key("user", "1"), v2.Key("user", "1"))
}

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"nova:v1:user:123", "nova:v1:user:123", true},
		{"nova:v1:user:123", "nova:v1:user:124", false},
		{"nova:v1:user:*", "nova:v1:user:123", true},
		{"nova:v1:user:*", "nova:v1:content:123", false},
		{"nova:v1:user:12*", "nova:v1:user:123", true},
		{"nova:v1:user:12*", "nova:v1:user:13", false},
		{"*", "anything", true},
		{"a*c*e", "abcde", true},
		{"a*c*e", "abde", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchGlob(tc.pattern, tc.name), "pattern=%s name=%s", tc.pattern, tc.name)
	}
}
