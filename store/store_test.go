package store

import (
	"encoding/json"
	"testing"

	"github.com/philippgille/gokv"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Fee   string
	Count int
}

func roundTrip(t *testing.T, s gokv.Store) {
	t.Helper()
	defer func() { require.NoError(t, s.Close()) }()

	require.NoError(t, s.Set("k", entry{Fee: "1000", Count: 3}))
	var got entry
	found, err := s.Get("k", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entry{Fee: "1000", Count: 3}, got)

	require.NoError(t, s.Delete("k"))
	found, err = s.Get("k", &got)
	require.NoError(t, err)
	require.False(t, found)
}

func optionsJSON(t *testing.T, o Options) string {
	b, err := json.Marshal(o)
	require.NoError(t, err)
	return string(b)
}

func TestInitStoreSyncMap(t *testing.T) {
	for _, opts := range []string{"", `{"codec":"json"}`, `{"codec":"gob"}`} {
		s, err := InitStore(TypeSyncMap, opts)
		require.NoError(t, err)
		roundTrip(t, s)
	}
	// empty type falls back to syncmap
	s, err := InitStore("", "")
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestInitStoreFile(t *testing.T) {
	dir := t.TempDir()
	s, err := InitStore(TypeFile, optionsJSON(t, Options{Dir: dir, Codec: "gob", FilenameExtension: "gob"}))
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestInitStoreBadgerDB(t *testing.T) {
	s, err := InitStore(TypeBadgerDB, optionsJSON(t, Options{Dir: t.TempDir()}))
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestInitStoreErrors(t *testing.T) {
	_, err := InitStore("s3", "")
	require.ErrorContains(t, err, "unsupported persistence type")

	_, err = InitStore(TypeSyncMap, `{"codec":"protobuf"}`)
	require.ErrorContains(t, err, "unsupported codec")

	_, err = InitStore(TypeSyncMap, `{not json`)
	require.ErrorContains(t, err, "json.Unmarshal err")
}
