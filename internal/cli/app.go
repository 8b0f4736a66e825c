// Package cli implements the interactive NoteKeeper REPL: unlocking the
// vault, note commands, audio attachment and backup operations.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/notekeeper/internal/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/backup"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/transcribe"
	"github.com/dmitrijs2005/notekeeper/internal/vault"
	"github.com/dmitrijs2005/notekeeper/internal/watch"
)

// App wires the vault, attachment store, transcription queue and backup
// service behind the REPL commands.
type App struct {
	config *config.Config
	log    logging.Logger
	reader *bufio.Reader

	db     *sql.DB
	blobs  attachments.Repository
	backup *backup.Service

	store   *vault.Store
	queue   *transcribe.Queue
	watcher *watch.Watcher
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	if _, err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, err
	}

	db, err := attachments.InitDatabase(ctx, c.AttachmentDBPath())
	if err != nil {
		log.Error(ctx, "error initializing attachment database", "error", err)
		return nil, err
	}

	bs := backup.NewService(backup.Config{
		Region:    c.S3Region,
		Endpoint:  c.S3BaseEndpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    c.S3Bucket,
	}, log)

	return &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		db:     db,
		blobs:  attachments.NewSQLiteRepository(db),
		backup: bs,
	}, nil
}

func (a *App) isUnlocked() bool {
	return a.store != nil
}

func (a *App) getStatus() string {
	if a.isUnlocked() {
		return "unlocked"
	}
	return "locked"
}

// Run drives the REPL until the user exits, then releases everything.
func (a *App) Run(ctx context.Context) {
	fmt.Println("Welcome to NoteKeeper CLI (type 'help' for commands)")

	// A valid unlock session lets the vault open without a password prompt.
	if err := a.openFromSession(ctx); err == nil {
		printlnFn(okFmt("Vault unlocked from saved session"))
	}
	if !a.isUnlocked() {
		_ = a.Unlock(ctx)
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	a.shutdown(ctx)
}

// Unlock opens the vault, prompting for the password, and saves a fresh
// unlock session.
func (a *App) Unlock(ctx context.Context) error {
	if a.isUnlocked() {
		printlnFn("Vault is already unlocked")
		return nil
	}

	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	store, err := vault.Open(ctx, a.config.ContainerPath(), pw, vault.Options{
		Logger:       a.log,
		Attachments:  a.blobs,
		FlushTimeout: a.config.FlushTimeout,
	})
	if err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			printlnFn(errFmt("Wrong password or damaged vault"))
		} else {
			printlnFn(errFmt("Unlock failed: " + err.Error()))
		}
		return err
	}
	a.store = store

	if err := store.SaveSession(ctx, a.config.SessionTTL); err != nil {
		a.log.Warn(ctx, "saving unlock session failed", "error", err)
	}

	a.onUnlocked(ctx)
	printlnFn(okFmt("Vault unlocked"))
	return nil
}

// openFromSession tries to open the vault from a previously saved session.
func (a *App) openFromSession(ctx context.Context) error {
	store, err := vault.OpenWithSession(ctx, a.config.ContainerPath(), vault.Options{
		Logger:       a.log,
		Attachments:  a.blobs,
		FlushTimeout: a.config.FlushTimeout,
	})
	if err != nil {
		return err
	}
	a.store = store
	a.onUnlocked(ctx)
	return nil
}

// onUnlocked starts the transcription queue and the container watcher.
func (a *App) onUnlocked(ctx context.Context) {
	if a.config.TranscriberEndpoint != "" {
		tr := transcribe.NewHTTPTranscriber(a.config.TranscriberEndpoint, a.config.TranscriberModel, a.config.FlushTimeout*4)
		a.queue = transcribe.NewQueue(tr, a.store, a.log, 16)
		a.queue.Start(ctx)
	}

	w, err := watch.New(a.config.ContainerPath(), a.log, 0)
	if err != nil {
		a.log.Warn(ctx, "container watcher unavailable", "error", err)
		return
	}
	if err := w.Start(ctx); err != nil {
		a.log.Warn(ctx, "container watcher unavailable", "error", err)
		return
	}
	a.watcher = w
	go func() {
		for range w.Events() {
			printlnFn(dimFmt("note: the container changed on disk; lock and unlock to reload"))
		}
	}()
}

// Lock drains the transcription queue, closes the vault and drops the
// unlock session.
func (a *App) Lock(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Vault is already locked")
		return nil
	}

	if a.watcher != nil {
		_ = a.watcher.Close()
		a.watcher = nil
	}
	if a.queue != nil {
		a.queue.Close()
		a.queue = nil
	}

	err := a.store.Close(ctx)
	a.store = nil
	if err != nil {
		printlnFn(errFmt("Final flush failed: " + err.Error()))
	}

	if err := vault.ClearSession(a.config.ContainerPath()); err != nil {
		a.log.Warn(ctx, "clearing unlock session failed", "error", err)
	}

	printlnFn(okFmt("Vault locked"))
	return err
}

// shutdown releases everything on REPL exit.
func (a *App) shutdown(ctx context.Context) {
	if a.isUnlocked() {
		if a.watcher != nil {
			_ = a.watcher.Close()
			a.watcher = nil
		}
		if a.queue != nil {
			a.queue.Close()
			a.queue = nil
		}
		if err := a.store.Close(ctx); err != nil {
			a.log.Error(ctx, "closing vault failed", "error", err)
		}
		a.store = nil
	}
	if err := a.db.Close(); err != nil {
		a.log.Error(ctx, "closing attachment database failed", "error", err)
	}
}

// ensureUnlocked reports a uniform error for commands that need the vault.
func (a *App) ensureUnlocked() error {
	if !a.isUnlocked() {
		printlnFn("Unlock the vault first")
		return common.ErrVaultClosed
	}
	return nil
}

// audioExportPath is where Play writes decrypted audio.
func (a *App) audioExportPath(id string) string {
	return filepath.Join(a.config.ExportDir, id+".audio")
}
