// Package notes defines the note data model: the rich-text document, tags
// and attachment references persisted inside the encrypted container.
package notes

import "strings"

// BlockKind classifies a document block.
type BlockKind string

const (
	BlockParagraph  BlockKind = "paragraph"
	BlockBullet     BlockKind = "bullet"
	BlockNumbered   BlockKind = "numbered"
	BlockCode       BlockKind = "code"
	BlockTranscript BlockKind = "transcript"
)

// Span is a run of text with uniform formatting. Color is an optional
// "#rrggbb" annotation; empty means the default foreground.
type Span struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Code   bool   `json:"code,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Block is one logical line or list item of a document.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Spans []Span    `json:"spans"`
}

// Document is the serializable rich-text body of a note: an ordered list of
// blocks. The zero value is an empty document.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// PlainDocument builds a single-paragraph document from plain text. Each
// input line becomes its own paragraph block.
func PlainDocument(text string) Document {
	if text == "" {
		return Document{}
	}
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Block{
			Kind:  BlockParagraph,
			Spans: []Span{{Text: line}},
		})
	}
	return Document{Blocks: blocks}
}

// TranscriptBlock wraps transcribed text into the annotated span form used
// when an async transcription result is appended to a note body.
func TranscriptBlock(text string) Block {
	return Block{
		Kind:  BlockTranscript,
		Spans: []Span{{Text: text, Italic: true}},
	}
}

// Append returns a copy of the document with the extra block at the end.
// The receiver is not modified; note bodies are treated as values.
func (d Document) Append(b Block) Document {
	blocks := make([]Block, 0, len(d.Blocks)+1)
	blocks = append(blocks, d.Blocks...)
	blocks = append(blocks, b)
	return Document{Blocks: blocks}
}

// PlainText flattens the document to plain text for search matching.
// Blocks are joined with newlines; formatting is discarded.
func (d Document) PlainText() string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, s := range b.Spans {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// IsEmpty reports whether the document contains no text at all.
func (d Document) IsEmpty() bool {
	for _, b := range d.Blocks {
		for _, s := range b.Spans {
			if s.Text != "" {
				return false
			}
		}
	}
	return true
}
