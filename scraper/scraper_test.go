package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/notecrawl/models"
)

func TestCookieStore(t *testing.T) {
	store := NewCookieStore(filepath.Join(t.TempDir(), "nested", "cookies.json"))
	assert.False(t, store.Exists())

	cookies := []*proto.NetworkCookie{
		{Name: "web_session", Value: "abc", Domain: ".xiaohongshu.com", Path: "/", HTTPOnly: true},
		{Name: "a1", Value: "xyz", Domain: ".xiaohongshu.com", Path: "/"},
	}
	require.NoError(t, store.Write(cookies))
	assert.True(t, store.Exists())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Read()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "web_session", got[0].Name)
	assert.True(t, got[0].HTTPOnly)

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
	assert.NoError(t, store.Delete(), "deleting twice is fine")
}

func TestCookieStore_ReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewCookieStore(path).Read()
	assert.ErrorContains(t, err, "parse cookie file")
}

func TestBlockedSet(t *testing.T) {
	got := blockedSet([]string{"Font", "Media", "Script", "Bogus"})
	assert.Len(t, got, 2)
	assert.Contains(t, got, proto.NetworkResourceTypeFont)
	assert.Contains(t, got, proto.NetworkResourceTypeMedia)
	assert.NotContains(t, got, proto.NetworkResourceTypeScript)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeTimeout},
		{"other", errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := categorizeError(tt.err, "x")
			assert.Equal(t, tt.code, se.Code)
			assert.ErrorIs(t, se, tt.err)
		})
	}
}
