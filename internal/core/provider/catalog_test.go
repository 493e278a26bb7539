package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	catalog := Default()

	require.Equal(t, Key("google"), catalog.Resolve("gmail.com"))
	require.Equal(t, Key("google"), catalog.Resolve(" GoogleMail.COM "))
	require.Equal(t, Key("microsoft"), catalog.Resolve("hotmail.com"))

	t.Run("UnknownMapsToItself", func(t *testing.T) {
		first := catalog.Resolve("Example.ORG")
		second := catalog.Resolve("example.org")
		require.Equal(t, Key("example.org"), first)
		require.Equal(t, first, second)
		require.Equal(t, first, catalog.Resolve(string(first)))
	})

	t.Run("NilCatalog", func(t *testing.T) {
		var nilCatalog *Catalog
		require.Equal(t, Key("gmail.com"), nilCatalog.Resolve("gmail.com"))
		require.Equal(t, DefaultInterval, nilCatalog.Interval("google"))
	})
}

func TestInterval(t *testing.T) {
	catalog := Default()

	assert.Equal(t, 300*time.Millisecond, catalog.Interval("google"))
	assert.Equal(t, 200*time.Millisecond, catalog.Interval("tencent"))
	assert.Equal(t, DefaultInterval, catalog.Interval("apple"))
	assert.Equal(t, DefaultInterval, catalog.Interval("example.org"))
}

func TestOverrides(t *testing.T) {
	catalog := New(
		Overrides{
			Domains:         map[string]string{"fastmail.com": "fastmail"},
			Intervals:       map[string]time.Duration{"fastmail": time.Second},
			DefaultInterval: 500 * time.Millisecond,
		},
		Overrides{
			Domains:   map[string]string{"gmail.com": "Custom", " ": "ignored"},
			Intervals: map[string]time.Duration{"fastmail": 2 * time.Second, "bad": -time.Second},
		},
	)

	require.Equal(t, Key("fastmail"), catalog.Resolve("fastmail.com"))
	require.Equal(t, Key("custom"), catalog.Resolve("gmail.com"))
	require.Equal(t, 2*time.Second, catalog.Interval("fastmail"))
	require.Equal(t, 500*time.Millisecond, catalog.Interval("bad"))
	require.Equal(t, 500*time.Millisecond, catalog.Fallback())

	// Built-in tables are not mutated by overrides.
	require.Equal(t, Key("google"), DefaultDomains["gmail.com"])
	require.Equal(t, Key("google"), Default().Resolve("gmail.com"))
}

func TestEntries(t *testing.T) {
	catalog := New(Overrides{Intervals: map[string]time.Duration{"standalone": time.Second}})
	entries := catalog.Entries()
	require.NotEmpty(t, entries)

	byKey := map[Key]Entry{}
	for i, entry := range entries {
		if i > 0 {
			require.Less(t, string(entries[i-1].Provider), string(entry.Provider))
		}
		byKey[entry.Provider] = entry
	}

	require.Equal(t, []string{"gmail.com", "googlemail.com"}, byKey["google"].Domains)
	require.Equal(t, 300*time.Millisecond, byKey["google"].Interval)
	require.Empty(t, byKey["standalone"].Domains)
	require.Equal(t, time.Second, byKey["standalone"].Interval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `default_interval: 400ms
providers:
  fastmail:
    interval: 250ms
    domains: [fastmail.com, fastmail.fm]
  google:
    domains: [google.example]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overrides, err := LoadFile(path)
	require.NoError(t, err)

	catalog := New(overrides)
	require.Equal(t, Key("fastmail"), catalog.Resolve("fastmail.fm"))
	require.Equal(t, Key("google"), catalog.Resolve("google.example"))
	require.Equal(t, 250*time.Millisecond, catalog.Interval("fastmail"))
	require.Equal(t, 300*time.Millisecond, catalog.Interval("google"))
	require.Equal(t, 400*time.Millisecond, catalog.Interval("unknown.example"))

	t.Run("BadInterval", func(t *testing.T) {
		_, err := ParseFile([]byte("providers:\n  x:\n    interval: soon\n"))
		require.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
