// Package export renders notes as Markdown files with YAML frontmatter, the
// interchange format most plain-text note tools understand.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

// frontmatter is the YAML header of an exported note.
type frontmatter struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
	HasAudio  bool      `yaml:"has_audio,omitempty"`
}

// Render serializes a note to Markdown with a YAML frontmatter block.
func Render(n *notes.Note) (string, error) {
	var buf bytes.Buffer

	fm := frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      n.Tags,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		HasAudio:  n.Attachment != nil,
	}

	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return "", err
	}
	encoder.Close()
	buf.WriteString("---\n\n")

	buf.WriteString("# " + n.Title + "\n\n")
	buf.WriteString(renderBody(n.Body))

	return buf.String(), nil
}

// renderBody flattens the block document into Markdown. Numbered items are
// renumbered from 1 within each run.
func renderBody(d notes.Document) string {
	var sb strings.Builder
	number := 0
	for _, b := range d.Blocks {
		text := blockText(b)
		if b.Kind != notes.BlockNumbered {
			number = 0
		}
		switch b.Kind {
		case notes.BlockBullet:
			sb.WriteString("- " + text + "\n")
		case notes.BlockNumbered:
			number++
			sb.WriteString(fmt.Sprintf("%d. %s\n", number, text))
		case notes.BlockCode:
			sb.WriteString("```\n" + text + "\n```\n")
		case notes.BlockTranscript:
			sb.WriteString("> " + text + "\n")
		default:
			sb.WriteString(text + "\n")
		}
	}
	return sb.String()
}

// blockText renders a block's spans with inline Markdown emphasis. Colors
// have no Markdown equivalent and are dropped.
func blockText(b notes.Block) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		text := s.Text
		if s.Code {
			text = "`" + text + "`"
		}
		if s.Bold {
			text = "**" + text + "**"
		}
		if s.Italic {
			text = "*" + text + "*"
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// WriteFile renders the note and writes it under dir as <slug>.md, returning
// the written path.
func WriteFile(dir string, n *notes.Note) (string, error) {
	content, err := Render(n)
	if err != nil {
		return "", err
	}

	absDir, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(absDir, slug(n.Title)+".md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// slug converts a title to a safe lowercase filename stem.
func slug(title string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		case !lastDash:
			sb.WriteRune('-')
			lastDash = true
		}
	}
	result := strings.Trim(sb.String(), "-")
	if result == "" {
		return "note"
	}
	return result
}
