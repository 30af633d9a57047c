package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenRoundTrip(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	payload := []byte(`[{"text":"hello","start":0,"end":4.2}]`)
	key := "aaaaaaaaaaa.captions.json"
	require.NoError(t, store.Save(context.Background(), key, bytes.NewReader(payload), int64(len(payload))))

	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestLocalStore_RejectsPathKeys(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.json", `sub\dir.json`} {
		err := store.Save(context.Background(), key, bytes.NewReader(nil), 0)
		require.Error(t, err)
		_, err = store.Open(context.Background(), key)
		require.Error(t, err)
	}
}

func TestLocalStore_MissingKeyFails(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)
	_, err = store.Open(context.Background(), "absent.captions.json")
	require.Error(t, err)
}
