package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

func sampleNote() *notes.Note {
	body := notes.PlainDocument("first line")
	body = body.Append(notes.Block{
		Kind:  notes.BlockBullet,
		Spans: []notes.Span{{Text: "important", Bold: true}},
	})
	body = body.Append(notes.TranscriptBlock("spoken words"))
	return &notes.Note{
		ID:        "n-1",
		Title:     "Weekly Plan",
		Body:      body,
		Tags:      []string{"work", "planning"},
		CreatedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	got, err := Render(sampleNote())
	require.NoError(t, err)

	assert.Contains(t, got, "---\n")
	assert.Contains(t, got, "id: n-1")
	assert.Contains(t, got, "title: Weekly Plan")
	assert.Contains(t, got, "- work")
	assert.Contains(t, got, "# Weekly Plan")
	assert.Contains(t, got, "first line\n")
	assert.Contains(t, got, "- **important**\n")
	assert.Contains(t, got, "> spoken words\n")
}

func TestRenderBody_NumberedListRestartsPerRun(t *testing.T) {
	d := notes.Document{}
	d = d.Append(notes.Block{Kind: notes.BlockNumbered, Spans: []notes.Span{{Text: "one"}}})
	d = d.Append(notes.Block{Kind: notes.BlockNumbered, Spans: []notes.Span{{Text: "two"}}})
	d = d.Append(notes.Block{Kind: notes.BlockParagraph, Spans: []notes.Span{{Text: "break"}}})
	d = d.Append(notes.Block{Kind: notes.BlockNumbered, Spans: []notes.Span{{Text: "again"}}})

	got := renderBody(d)
	assert.Equal(t, "1. one\n2. two\nbreak\n1. again\n", got)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, sampleNote())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weekly-plan.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Weekly Plan")
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Weekly Plan", "weekly-plan"},
		{"  Groceries!!  ", "groceries"},
		{"Résumé notes", "rsum-notes"},
		{"***", "note"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slug(tt.in), "slug(%q)", tt.in)
	}
}
