package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/transcribe"
)

// Attach encrypts an audio file into the attachment store, links it to a
// note and, when a transcriber is configured, queues it for transcription.
func (a *App) Attach(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}
	path, err := GetSimpleText(a.reader, "Audio file path", os.Stdout)
	if err != nil {
		return err
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		printlnFn(errFmt("Cannot read audio file: " + err.Error()))
		return err
	}

	n, err := a.store.AttachAudio(ctx, id, audio)
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	printlnFn(okFmt("Attached ") + audioFmt(fmt.Sprintf("%d bytes", len(audio))) + " to " + titleFmt(n.Title))

	if a.queue == nil {
		printlnFn(dimFmt("transcription disabled (no endpoint configured)"))
		return nil
	}
	if err := a.queue.Enqueue(ctx, transcribe.Job{NoteID: id, Audio: audio}); err != nil {
		printlnFn(errFmt("Queueing transcription failed: " + err.Error()))
		return err
	}
	printlnFn(dimFmt("transcription queued; the transcript will be appended when ready"))
	return nil
}

// Play decrypts a note's audio and writes it under the export directory.
func (a *App) Play(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}

	audio, err := a.store.ReadAudio(ctx, id)
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}

	if _, err := filex.EnsureDir(a.config.ExportDir); err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	dest := a.audioExportPath(id)
	if err := os.WriteFile(dest, audio, 0o600); err != nil {
		printlnFn(errFmt("Writing audio failed: " + err.Error()))
		return err
	}
	printlnFn(okFmt("Audio saved to ") + dest)
	return nil
}
