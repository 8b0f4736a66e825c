package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

// DefaultFlushTimeout bounds how long a single container flush may take
// before it is abandoned and reported as a storage error.
const DefaultFlushTimeout = 5 * time.Second

// Options configure a Store on open.
type Options struct {
	// Logger receives structured events. Defaults to slog's default logger.
	Logger logging.Logger
	// Attachments persists encrypted audio blobs. Optional; AttachAudio and
	// ReadAudio fail with ErrStorage when unset.
	Attachments attachments.Repository
	// FlushTimeout bounds each container flush. Zero means DefaultFlushTimeout.
	FlushTimeout time.Duration
}

// Store is the unlocked vault: the decrypted note collection, its index,
// and the key material needed to flush changes back to the container file.
//
// All mutating operations follow the same sequence: apply the change to a
// copy, flush the resulting container atomically, and only then swap the
// in-memory state. A failed flush therefore leaves both the file and the
// visible state exactly as they were.
type Store struct {
	path         string
	log          logging.Logger
	blobs        attachments.Repository
	flushTimeout time.Duration

	mu       sync.RWMutex
	key      []byte
	hdr      header
	notes    map[string]*notes.Note
	index    *index
	untitled int
	closed   bool
}

// Open unlocks the container at path with the given credential, creating a
// fresh empty vault if no container exists yet.
//
// A wrong credential, a tampered container and a structurally damaged file
// all surface as ErrAuthentication. I/O failures surface as ErrStorage.
func Open(ctx context.Context, path string, credential []byte, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewSlogLogger(slog.Default())
	}
	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}

	s := &Store{
		path:         path,
		log:          log.With("component", "vault"),
		blobs:        opts.Attachments,
		flushTimeout: timeout,
		notes:        make(map[string]*notes.Note),
		index:        newIndex(),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := s.unlock(data, credential); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := s.initialize(ctx, credential); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, path, err)
	}

	s.log.Info(ctx, "vault opened", "path", path, "notes", s.index.len())
	return s, nil
}

// initialize writes a brand-new empty container with a fresh salt.
func (s *Store) initialize(ctx context.Context, credential []byte) error {
	hdr := header{
		Version: containerVersion,
		KDF:     cryptox.DefaultKDFParams(),
		Salt:    common.GenerateRandByteArray(saltSize),
	}
	s.hdr = hdr
	s.key = cryptox.DeriveMasterKey(credential, hdr.Salt, hdr.KDF)

	if err := s.flushLocked(ctx, payload{}); err != nil {
		common.WipeByteArray(s.key)
		return err
	}
	return nil
}

// unlock derives the key from the persisted KDF parameters and decrypts the
// container body.
func (s *Store) unlock(data []byte, credential []byte) error {
	hdr, ciphertext, aad, err := decodeContainer(data)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}
	key := cryptox.DeriveMasterKey(credential, hdr.Salt, hdr.KDF)
	return s.unlockWithKey(hdr, ciphertext, aad, key)
}

// unlockWithKey decrypts the container body with an already-derived master
// key. It takes ownership of key and wipes it on failure.
func (s *Store) unlockWithKey(hdr header, ciphertext, aad, key []byte) error {
	var p payload
	if err := cryptox.DecryptPayload(ciphertext, hdr.Nonce, key, aad, &p); err != nil {
		common.WipeByteArray(key)
		return fmt.Errorf("%w: decrypt container: %v", common.ErrAuthentication, err)
	}

	s.hdr = hdr
	s.key = key
	s.untitled = p.UntitledCounter
	for i := range p.Notes {
		n := p.Notes[i]
		s.notes[n.ID] = &n
		s.index.put(n.Summary())
	}
	return nil
}

// Path returns the container file path.
func (s *Store) Path() string {
	return s.path
}

// Create adds a new note and flushes it. An empty title is replaced with a
// numbered "Untitled Note N" placeholder; the counter is persisted so the
// numbers never repeat.
func (s *Store) Create(ctx context.Context, title string, body notes.Document, tags []string) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}

	now := time.Now().UTC()
	counter := s.untitled
	title = strings.TrimSpace(title)
	if title == "" {
		counter++
		title = fmt.Sprintf("Untitled Note %d", counter)
	}

	n := &notes.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Tags:      notes.NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	p := s.snapshotPayload()
	p.Notes = append(p.Notes, *n.Clone())
	p.UntitledCounter = counter

	if err := s.flushLocked(ctx, p); err != nil {
		return nil, err
	}

	s.notes[n.ID] = n
	s.index.put(n.Summary())
	s.untitled = counter
	s.log.Debug(ctx, "note created", "id", n.ID)
	return n.Clone(), nil
}

// Read returns a deep copy of the note with the given ID.
func (s *Store) Read(ctx context.Context, id string) (*notes.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}
	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("%w: note %s", common.ErrNotFound, id)
	}
	return n.Clone(), nil
}

// Update applies mutate to a copy of the note, normalizes the result and
// flushes it. The note's ID and CreatedAt cannot be changed by the mutator;
// UpdatedAt is always advanced. The stored note is untouched if the flush
// fails.
func (s *Store) Update(ctx context.Context, id string, mutate func(*notes.Note)) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, id, mutate)
}

func (s *Store) updateLocked(ctx context.Context, id string, mutate func(*notes.Note)) (*notes.Note, error) {
	if s.closed {
		return nil, common.ErrVaultClosed
	}
	stored, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("%w: note %s", common.ErrNotFound, id)
	}

	candidate := stored.Clone()
	mutate(candidate)
	candidate.ID = stored.ID
	candidate.CreatedAt = stored.CreatedAt
	candidate.Tags = notes.NormalizeTags(candidate.Tags)
	candidate.UpdatedAt = time.Now().UTC()
	if candidate.UpdatedAt.Before(candidate.CreatedAt) {
		candidate.UpdatedAt = candidate.CreatedAt
	}

	p := s.snapshotPayloadExcept(id)
	p.Notes = append(p.Notes, *candidate.Clone())

	if err := s.flushLocked(ctx, p); err != nil {
		return nil, err
	}

	s.notes[id] = candidate
	s.index.put(candidate.Summary())
	s.log.Debug(ctx, "note updated", "id", id)
	return candidate.Clone(), nil
}

// Delete removes the note and flushes the container. If the note carried an
// audio attachment, the blob is removed afterwards; a failure there only
// leaves an orphaned blob and is logged, not returned.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrVaultClosed
	}
	stored, ok := s.notes[id]
	if !ok {
		return fmt.Errorf("%w: note %s", common.ErrNotFound, id)
	}

	p := s.snapshotPayloadExcept(id)
	if err := s.flushLocked(ctx, p); err != nil {
		return err
	}

	delete(s.notes, id)
	s.index.remove(id)

	if stored.Attachment != nil && s.blobs != nil {
		if err := s.blobs.Delete(ctx, stored.Attachment.ID); err != nil {
			s.log.Warn(ctx, "orphaned attachment blob", "note_id", id, "blob_id", stored.Attachment.ID, "error", err)
		}
	}
	s.log.Debug(ctx, "note deleted", "id", id)
	return nil
}

// List returns summaries of all notes, most recently updated first.
func (s *Store) List(ctx context.Context) ([]notes.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}
	return s.index.sorted(), nil
}

// Search matches query case-insensitively as a substring of title, tags or
// body text and returns the matches most recently updated first. An empty
// query matches every note. The returned sequence is a snapshot taken at
// call time and can be ranged over more than once.
func (s *Store) Search(ctx context.Context, query string) (iter.Seq[notes.Summary], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}

	matched := make([]notes.Summary, 0, len(s.notes))
	for _, n := range s.notes {
		ok, snippet := matchNote(n, query)
		if !ok {
			continue
		}
		sum := n.Summary()
		sum.Snippet = snippet
		matched = append(matched, sum)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return func(yield func(notes.Summary) bool) {
		for _, sum := range matched {
			if !yield(sum) {
				return
			}
		}
	}, nil
}

// AttachAudio encrypts audio under a fresh data key, stores the blob, and
// links it to the note. An existing attachment is replaced; its blob is
// removed once the new state is flushed. If the flush fails the new blob is
// deleted again, leaving note and blob store as they were.
func (s *Store) AttachAudio(ctx context.Context, id string, audio []byte) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: attachment store not configured", common.ErrStorage)
	}
	stored, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("%w: note %s", common.ErrNotFound, id)
	}

	blob, err := cryptox.EncryptBlob(audio)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt attachment: %v", common.ErrStorage, err)
	}
	defer common.WipeByteArray(blob.Key)

	wrapped, err := cryptox.WrapKey(blob.Key, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: wrap attachment key: %v", common.ErrStorage, err)
	}

	rec := &attachments.Record{
		ID:         uuid.NewString(),
		NoteID:     id,
		Ciphertext: blob.Ciphertext,
		WrappedKey: wrapped,
		Nonce:      blob.Nonce,
		Size:       int64(len(audio)),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.blobs.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: store attachment: %v", common.ErrStorage, err)
	}

	previous := stored.Attachment
	n, err := s.updateLocked(ctx, id, func(n *notes.Note) {
		n.Attachment = &notes.AttachmentRef{ID: rec.ID, Size: rec.Size}
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, rec.ID); delErr != nil {
			s.log.Warn(ctx, "orphaned attachment blob", "note_id", id, "blob_id", rec.ID, "error", delErr)
		}
		return nil, err
	}

	if previous != nil {
		if err := s.blobs.Delete(ctx, previous.ID); err != nil {
			s.log.Warn(ctx, "orphaned attachment blob", "note_id", id, "blob_id", previous.ID, "error", err)
		}
	}
	return n, nil
}

// ReadAudio returns the decrypted audio attached to the note.
func (s *Store) ReadAudio(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, common.ErrVaultClosed
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: attachment store not configured", common.ErrStorage)
	}
	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("%w: note %s", common.ErrNotFound, id)
	}
	if n.Attachment == nil {
		return nil, fmt.Errorf("%w: note %s has no audio", common.ErrNotFound, id)
	}

	rec, err := s.blobs.Get(ctx, n.Attachment.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load attachment: %v", common.ErrStorage, err)
	}

	key, err := cryptox.UnwrapKey(rec.WrappedKey, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap attachment key: %v", common.ErrAuthentication, err)
	}
	defer common.WipeByteArray(key)

	audio, err := cryptox.DecryptBlob(rec.Ciphertext, key, rec.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt attachment: %v", common.ErrAuthentication, err)
	}
	return audio, nil
}

// AppendTranscript appends transcript text to the note body as a marked
// transcript block and, if the note carries an audio attachment, flags the
// attachment as transcribed.
func (s *Store) AppendTranscript(ctx context.Context, id string, transcript string) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, id, func(n *notes.Note) {
		n.Body = n.Body.Append(notes.TranscriptBlock(transcript))
		if n.Attachment != nil {
			n.Attachment.Transcribed = true
		}
	})
}

// Close flushes the current state one final time, wipes the key material
// and marks the store closed. The key is wiped even if the flush fails.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	err := s.flushLocked(ctx, s.snapshotPayload())

	common.WipeByteArray(s.key)
	s.key = nil
	s.notes = nil
	s.index = newIndex()
	s.closed = true

	s.log.Info(ctx, "vault closed", "path", s.path)
	return err
}

// snapshotPayload copies the current state into a container payload.
func (s *Store) snapshotPayload() payload {
	return s.snapshotPayloadExcept("")
}

func (s *Store) snapshotPayloadExcept(skipID string) payload {
	p := payload{
		Notes:           make([]notes.Note, 0, len(s.notes)),
		UntitledCounter: s.untitled,
	}
	for id, n := range s.notes {
		if id == skipID {
			continue
		}
		p.Notes = append(p.Notes, *n.Clone())
	}
	return p
}

// flushLocked encodes the payload under a fresh nonce and writes it to the
// container file atomically, bounded by the flush timeout. On success the
// new header (with its nonce) becomes current. On timeout the write is
// abandoned before its final rename, so the old container stays in place.
//
// Callers must hold the write lock (or be the only goroutine, during open).
func (s *Store) flushLocked(ctx context.Context, p payload) error {
	// Order notes by ID so repeated flushes of the same state encode
	// identically, no matter how the payload was assembled.
	sort.Slice(p.Notes, func(i, j int) bool { return p.Notes[i].ID < p.Notes[j].ID })

	hdr := s.hdr
	hdr.Nonce = cryptox.NewNonce()

	data, err := encodeContainer(p, s.key, hdr)
	if err != nil {
		return fmt.Errorf("%w: encode container: %v", common.ErrStorage, err)
	}

	var abandoned atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- filex.WriteAtomicCancelable(s.path, data, containerPerm, abandoned.Load)
	}()

	timer := time.NewTimer(s.flushTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: flush %s: %v", common.ErrStorage, s.path, err)
		}
		s.hdr = hdr
		return nil
	case <-timer.C:
		abandoned.Store(true)
		s.log.Error(ctx, "flush timed out", "path", s.path, "timeout", s.flushTimeout)
		return fmt.Errorf("%w: flush %s timed out after %s", common.ErrStorage, s.path, s.flushTimeout)
	case <-ctx.Done():
		abandoned.Store(true)
		return fmt.Errorf("%w: flush %s canceled: %v", common.ErrStorage, s.path, ctx.Err())
	}
}
