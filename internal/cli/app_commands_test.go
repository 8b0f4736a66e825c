package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/vault"
)

// newTestApp returns an App with an open vault and scripted stdin.
func newTestApp(t *testing.T, input string) *App {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = dir
	cfg.ExportDir = filepath.Join(dir, "export")

	store, err := vault.Open(ctx, cfg.ContainerPath(), []byte("pw"), vault.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	return &App{
		config: cfg,
		log:    logging.NewSlogLogger(slog.Default()),
		reader: bufio.NewReader(strings.NewReader(input)),
		store:  store,
	}
}

// captureOutput redirects printlnFn into a slice for the duration of a test.
func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(args ...any) (int, error) {
		lines = append(lines, fmt.Sprintln(args...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func output(lines *[]string) string {
	return strings.Join(*lines, "")
}

func TestApp_CreateListShow(t *testing.T) {
	ctx := context.Background()
	// Scripted input: title, body lines, blank line, tags.
	app := newTestApp(t, strings.Join([]string{
		"Groceries",
		"milk",
		"eggs",
		"",
		"home, food",
	}, "\n")+"\n")
	lines := captureOutput(t)

	require.NoError(t, app.Create(ctx))
	assert.Contains(t, output(lines), "Groceries")

	*lines = nil
	require.NoError(t, app.List(ctx))
	assert.Contains(t, output(lines), "Groceries")
	assert.Contains(t, output(lines), "home")

	summaries, err := app.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	*lines = nil
	app.reader = bufio.NewReader(strings.NewReader(summaries[0].ID + "\n"))
	require.NoError(t, app.Show(ctx))
	assert.Contains(t, output(lines), "milk\neggs")
}

func TestApp_SearchFindsBodyMatch(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, "Plans\nbuy groceries tomorrow\n\n\n")
	lines := captureOutput(t)

	require.NoError(t, app.Create(ctx))

	*lines = nil
	app.reader = bufio.NewReader(strings.NewReader("GROCER\n"))
	require.NoError(t, app.Search(ctx))
	assert.Contains(t, output(lines), "Plans")
	assert.Contains(t, output(lines), "groceries")
}

func TestApp_DeleteRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, "Doomed\nbody\n\n\n")
	lines := captureOutput(t)
	require.NoError(t, app.Create(ctx))

	summaries, err := app.store.List(ctx)
	require.NoError(t, err)
	id := summaries[0].ID

	// Declined confirmation keeps the note.
	app.reader = bufio.NewReader(strings.NewReader(id + "\nno\n"))
	require.NoError(t, app.Delete(ctx))
	_, err = app.store.Read(ctx, id)
	require.NoError(t, err)

	// Confirmed deletion removes it.
	*lines = nil
	app.reader = bufio.NewReader(strings.NewReader(id + "\nyes\n"))
	require.NoError(t, app.Delete(ctx))
	_, err = app.store.Read(ctx, id)
	require.Error(t, err)
}

func TestApp_CommandsNeedUnlockedVault(t *testing.T) {
	app := &App{reader: bufio.NewReader(strings.NewReader(""))}
	_ = captureOutput(t)

	ctx := context.Background()
	require.Error(t, app.Create(ctx))
	require.Error(t, app.List(ctx))
	require.Error(t, app.Search(ctx))
	require.Error(t, app.Delete(ctx))
	require.Error(t, app.Attach(ctx))
	require.Error(t, app.Export(ctx))
}
