package transcribe

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("transcription queue closed")

// fallbackTitle and fallbackTag mark transcripts whose target note vanished
// (or was never set) so the text is kept instead of dropped.
const (
	fallbackTitle = "Transcribed Note"
	fallbackTag   = "transcription"
)

// NoteStore is the slice of the vault the queue writes through.
type NoteStore interface {
	AppendTranscript(ctx context.Context, id string, transcript string) (*notes.Note, error)
	Create(ctx context.Context, title string, body notes.Document, tags []string) (*notes.Note, error)
}

// Job is one pending transcription: audio bytes bound to a note, or to no
// note at all for a free-standing recording.
type Job struct {
	NoteID string
	Audio  []byte
}

// Queue runs transcription jobs on a single consumer goroutine, so
// transcripts are applied to the vault strictly in submission order and
// never race each other.
type Queue struct {
	tr    Transcriber
	store NoteStore
	log   logging.Logger

	mu     sync.Mutex
	jobs   chan Job
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a queue buffering up to size pending jobs.
func NewQueue(tr Transcriber, store NoteStore, log logging.Logger, size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{
		tr:    tr,
		store: store,
		log:   log.With("component", "transcribe"),
		jobs:  make(chan Job, size),
	}
}

// Start launches the consumer. It runs until Close is called and the
// remaining jobs have drained, or until ctx is canceled.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				q.process(ctx, job)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Enqueue submits a job. It blocks while the buffer is full and fails once
// the queue is closed or ctx is canceled.
//
// The send happens under the queue mutex. Close takes the same mutex before
// closing the channel, so a blocked Enqueue can never race a close and
// panic; Close simply waits until the pending send completes or gives up.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) process(ctx context.Context, job Job) {
	text, err := q.tr.Transcribe(ctx, job.Audio)
	if err != nil {
		q.log.Error(ctx, "transcription failed", "note_id", job.NoteID, "error", err)
		return
	}
	if text == "" {
		q.log.Warn(ctx, "empty transcript", "note_id", job.NoteID)
		return
	}

	if job.NoteID != "" {
		_, err = q.store.AppendTranscript(ctx, job.NoteID, text)
		if err == nil {
			q.log.Info(ctx, "transcript appended", "note_id", job.NoteID)
			return
		}
		if !errors.Is(err, common.ErrNotFound) {
			q.log.Error(ctx, "appending transcript failed", "note_id", job.NoteID, "error", err)
			return
		}
		// The target note is gone; keep the transcript in a fresh note.
		q.log.Warn(ctx, "transcript target missing, creating fallback note", "note_id", job.NoteID)
	}

	doc := notes.Document{}.Append(notes.TranscriptBlock(text))
	n, err := q.store.Create(ctx, fallbackTitle, doc, []string{fallbackTag})
	if err != nil {
		q.log.Error(ctx, "creating transcript note failed", "error", err)
		return
	}
	q.log.Info(ctx, "transcript note created", "note_id", n.ID)
}
