package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

func TestSession_SaveAndReopenWithoutCredential(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.nkv")

	s, _ := testOpen(t, dir, "pw")
	created, err := s.Create(ctx, "remembered", notes.PlainDocument("body"), nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(ctx, time.Hour))
	require.NoError(t, s.Close(ctx))

	s2, err := OpenWithSession(ctx, path, Options{})
	require.NoError(t, err)
	defer s2.Close(ctx)

	got, err := s2.Read(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "remembered", got.Title)
}

func TestSession_Expired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.nkv")

	s, _ := testOpen(t, dir, "pw")
	require.NoError(t, s.SaveSession(ctx, -time.Minute))
	require.NoError(t, s.Close(ctx))

	_, err := OpenWithSession(ctx, path, Options{})
	require.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestSession_MissingOrCleared(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.nkv")

	_, err := OpenWithSession(ctx, path, Options{})
	require.ErrorIs(t, err, common.ErrSessionInvalid)

	s, _ := testOpen(t, dir, "pw")
	require.NoError(t, s.SaveSession(ctx, time.Hour))
	require.NoError(t, s.Close(ctx))

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path))

	_, err = OpenWithSession(ctx, path, Options{})
	require.ErrorIs(t, err, common.ErrSessionInvalid)
}

func TestSession_DamagedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.nkv")

	s, _ := testOpen(t, dir, "pw")
	require.NoError(t, s.SaveSession(ctx, time.Hour))
	require.NoError(t, s.Close(ctx))

	require.NoError(t, os.WriteFile(SessionPath(path), []byte("not json"), 0o600))

	_, err := OpenWithSession(ctx, path, Options{})
	require.ErrorIs(t, err, common.ErrSessionInvalid)
}
