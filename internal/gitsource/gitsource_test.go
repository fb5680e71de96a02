package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"https://github.com/me/decks.git", filepath.Join("repos", "github.com", "me", "decks"), false},
		{"https://gitlab.com/group/sub/decks", filepath.Join("repos", "gitlab.com", "group", "sub", "decks"), false},
		{"git@github.com:me/decks.git", filepath.Join("repos", "github.com", "me", "decks"), false},
		{"ssh://git@example.org/me/decks.git", filepath.Join("repos", "example.org", "me", "decks"), false},
		{"/local/dir", "", true},
		{"https://github.com/", "", true},
		{"https://h/../../x", "", true},
		{"https://h/me/../../x.git", "", true},
		{"git@h:../outside.git", "", true},
		{"https://h/me/../decks", filepath.Join("repos", "h", "decks"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Expected error=%v, but got %v", tc.wantErr, err)
			}
			if got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	testCases := map[string]bool{
		"https://github.com/me/decks.git": true,
		"git@github.com:me/decks.git":     true,
		"./decks":                         false,
		"/home/me/decks":                  false,
	}
	for path, expected := range testCases {
		if got := IsRemote(path); got != expected {
			t.Errorf("IsRemote(%q): expected %v, but got %v", path, expected, got)
		}
	}
}
