package tasks

import (
	"testing"
)

func TestTwitterHandle(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"plain profile", "https://twitter.com/example", "example"},
		{"trailing slash", "https://twitter.com/example/", "example"},
		{"no scheme", "twitter.com/handle", "handle"},
		{"empty", "", ""},
		{"bare host", "https://twitter.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := twitterHandle(tc.url); got != tc.want {
				t.Errorf("Expected %q, got: %q", tc.want, got)
			}
		})
	}
}
