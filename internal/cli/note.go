package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

// Create prompts for a new note and stores it. An empty title gets an
// automatic "Untitled Note N" name.
func (a *App) Create(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	title, err := GetSimpleText(a.reader, "Title (empty for untitled)", os.Stdout)
	if err != nil {
		return err
	}
	body, err := GetMultiline(a.reader, "Body", os.Stdout)
	if err != nil {
		return err
	}
	tags, err := GetTags(a.reader, os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.store.Create(ctx, title, notes.PlainDocument(body), tags)
	if err != nil {
		printlnFn(errFmt("Create failed: " + err.Error()))
		return err
	}
	printlnFn(okFmt("Created ") + titleFmt(n.Title) + dimFmt(" ("+n.ID+")"))
	return nil
}

// List prints all notes, most recently updated first.
func (a *App) List(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	summaries, err := a.store.List(ctx)
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	if len(summaries) == 0 {
		printlnFn("No notes yet")
		return nil
	}
	for _, s := range summaries {
		printlnFn(formatSummary(s))
	}
	return nil
}

// Search prompts for a query and prints the matches.
func (a *App) Search(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	query, err := GetSimpleText(a.reader, "Search for", os.Stdout)
	if err != nil {
		return err
	}

	seq, err := a.store.Search(ctx, query)
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}

	found := 0
	for s := range seq {
		found++
		printlnFn(formatSummary(s))
		if s.Snippet != "" {
			printlnFn("    " + dimFmt(s.Snippet))
		}
	}
	if found == 0 {
		printlnFn("Nothing found")
	}
	return nil
}

// Show prints one full note.
func (a *App) Show(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.store.Read(ctx, id)
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}

	printlnFn(titleFmt(n.Title))
	if len(n.Tags) > 0 {
		printlnFn(tagFmt("[" + strings.Join(n.Tags, ", ") + "]"))
	}
	printlnFn(dimFmt(fmt.Sprintf("created %s, updated %s",
		n.CreatedAt.Format("2006-01-02 15:04"), n.UpdatedAt.Format("2006-01-02 15:04"))))
	if n.Attachment != nil {
		status := "not transcribed yet"
		if n.Attachment.Transcribed {
			status = "transcribed"
		}
		printlnFn(audioFmt(fmt.Sprintf("audio attachment: %d bytes, %s", n.Attachment.Size, status)))
	}
	printlnFn("")
	printlnFn(n.Body.PlainText())
	return nil
}

// Edit replaces a note's title and/or body. Empty input keeps the current
// value.
func (a *App) Edit(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}
	title, err := GetSimpleText(a.reader, "New title (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	body, err := GetMultiline(a.reader, "New body (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.store.Update(ctx, id, func(n *notes.Note) {
		if title != "" {
			n.Title = title
		}
		if body != "" {
			n.Body = notes.PlainDocument(body)
		}
	})
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	printlnFn(okFmt("Updated ") + titleFmt(n.Title))
	return nil
}

// Tag replaces a note's tags.
func (a *App) Tag(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}
	tags, err := GetTags(a.reader, os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.store.Update(ctx, id, func(n *notes.Note) {
		n.Tags = tags
	})
	if err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	printlnFn(okFmt("Tagged ") + titleFmt(n.Title) + " " + tagFmt(strings.Join(n.Tags, ", ")))
	return nil
}

// Delete removes a note after a confirmation prompt.
func (a *App) Delete(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := GetSimpleText(a.reader, "Type 'yes' to delete", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "yes" {
		printlnFn("Aborted")
		return nil
	}

	if err := a.store.Delete(ctx, id); err != nil {
		printlnFn(errFmt(err.Error()))
		return err
	}
	printlnFn(okFmt("Deleted"))
	return nil
}

func formatSummary(s notes.Summary) string {
	line := titleFmt(s.Title)
	if len(s.Tags) > 0 {
		line += " " + tagFmt("["+strings.Join(s.Tags, ", ")+"]")
	}
	if s.HasAudio {
		line += " " + audioFmt("♪")
	}
	line += " " + dimFmt(s.UpdatedAt.Format("2006-01-02 15:04")+" "+s.ID)
	return line
}
