package notes

import (
	"slices"
	"strings"
	"time"
)

// AttachmentRef links a note to an encrypted audio blob stored in the
// attachment database. Transcribed flips to true once the async transcript
// has been appended to the body.
type AttachmentRef struct {
	ID          string `json:"id"`
	Size        int64  `json:"size"`
	Transcribed bool   `json:"transcribed"`
}

// Note is the full decrypted form of a stored note.
//
// Invariants maintained by the store:
//   - ID is unique across the vault and never reused, even after deletion.
//   - Timestamps are UTC and UpdatedAt >= CreatedAt.
type Note struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Body       Document       `json:"body"`
	Tags       []string       `json:"tags,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
}

// Summary is the index entry for a note: everything listing and search need
// without decrypting full bodies.
type Summary struct {
	ID        string
	Title     string
	Tags      []string
	UpdatedAt time.Time
	HasAudio  bool
	// Snippet is a short excerpt around the first body match. It is only set
	// on search results whose body (not title) matched the query.
	Snippet string
}

// Summary derives the index entry for the note.
func (n *Note) Summary() Summary {
	return Summary{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      slices.Clone(n.Tags),
		UpdatedAt: n.UpdatedAt,
		HasAudio:  n.Attachment != nil,
	}
}

// Clone returns a deep copy, so a mutator can be applied without touching
// the stored note until the flush succeeds.
func (n *Note) Clone() *Note {
	c := *n
	c.Tags = slices.Clone(n.Tags)
	c.Body.Blocks = make([]Block, len(n.Body.Blocks))
	for i, b := range n.Body.Blocks {
		c.Body.Blocks[i] = Block{Kind: b.Kind, Spans: slices.Clone(b.Spans)}
	}
	if n.Attachment != nil {
		a := *n.Attachment
		c.Attachment = &a
	}
	return &c
}

// NormalizeTags trims, lowercases and deduplicates tags while keeping the
// first occurrence order stable. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
