package vault

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

// snippetContext is how many runes of surrounding context a search snippet
// keeps on each side of the first match.
const snippetContext = 30

// index is the in-memory NoteIndex: id -> Summary. It is rebuilt from the
// decrypted container on open and updated only after a successful flush,
// so readers never observe a state that is not on disk.
type index struct {
	entries map[string]notes.Summary
}

func newIndex() *index {
	return &index{entries: make(map[string]notes.Summary)}
}

func (ix *index) put(s notes.Summary) {
	ix.entries[s.ID] = s
}

func (ix *index) remove(id string) {
	delete(ix.entries, id)
}

func (ix *index) len() int {
	return len(ix.entries)
}

// sorted returns all entries ordered by UpdatedAt descending, ties broken
// by ID ascending so listings are deterministic.
func (ix *index) sorted() []notes.Summary {
	result := make([]notes.Summary, 0, len(ix.entries))
	for _, s := range ix.entries {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// matchNote reports whether a note matches the case-insensitive substring
// query, and returns a body snippet when the match came from the body.
// An empty query matches everything.
func matchNote(n *notes.Note, query string) (matched bool, snippet string) {
	if query == "" {
		return true, ""
	}
	q := strings.ToLower(query)

	titleHit := strings.Contains(strings.ToLower(n.Title), q)

	tagHit := false
	for _, tag := range n.Tags {
		if strings.Contains(tag, q) { // tags are stored lowercase
			tagHit = true
			break
		}
	}

	body := n.Body.PlainText()
	lowered := strings.ToLower(body)
	pos := strings.Index(lowered, q)
	bodyHit := pos >= 0

	if !titleHit && !tagHit && !bodyHit {
		return false, ""
	}
	if bodyHit && !titleHit {
		// Byte offsets into the lowered string do not transfer back to the
		// original: lowercasing can change a rune's UTF-8 width. Rune offsets
		// do, since ToLower maps rune to rune.
		snippet = makeSnippet(body, utf8.RuneCountInString(lowered[:pos]), utf8.RuneCountInString(q))
	}
	return true, snippet
}

// makeSnippet extracts the matched region with surrounding context,
// mirroring the preview shown under a note title in search results.
// pos and matchLen are rune offsets into body, never byte offsets.
func makeSnippet(body string, pos, matchLen int) string {
	runes := []rune(body)
	if pos > len(runes) {
		pos = len(runes)
	}
	start := pos - snippetContext
	if start < 0 {
		start = 0
	}
	end := pos + matchLen + snippetContext
	if end > len(runes) {
		end = len(runes)
	}
	if start > end {
		start = end
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}
