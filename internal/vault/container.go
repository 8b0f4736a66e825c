// Package vault implements the SecureNoteStore: a single authenticated-
// encrypted container file holding all notes, an in-memory index for
// listing and search, and a single-writer mutation path with atomic flushes.
package vault

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

const (
	containerVersion = 1
	saltSize         = 16
	containerPerm    = 0o600
)

// containerMagic identifies a NoteKeeper vault file.
var containerMagic = []byte("NKV1")

// header is the cleartext preamble of the container file. It carries
// everything needed to re-derive the key and decrypt the body. The header
// bytes double as AEAD additional data, so any tampering with the KDF
// parameters or salt fails authentication.
type header struct {
	Version int              `json:"version"`
	KDF     cryptox.KDFParams `json:"kdf"`
	Salt    []byte           `json:"salt"`
	Nonce   []byte           `json:"nonce"`
}

// payload is the decrypted container body: the full note collection plus
// the counter used to number untitled notes.
type payload struct {
	Notes           []notes.Note `json:"notes"`
	UntitledCounter int          `json:"untitled_counter"`
}

var errMalformed = fmt.Errorf("malformed container")

// encodeContainer assembles the on-disk byte form:
//
//	magic(4) | headerLen(uint32 BE) | headerJSON | ciphertext
//
// The nonce inside hdr must be freshly generated by the caller; hdr (minus
// the ciphertext) is authenticated as AAD.
func encodeContainer(p payload, key []byte, hdr header) ([]byte, error) {
	hdrBytes, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cryptox.EncryptPayload(p, key, hdr.Nonce, aadFor(hdrBytes))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(containerMagic)
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(hdrBytes))); err != nil {
		return nil, err
	}
	buf.Write(hdrBytes)
	buf.Write(ciphertext)
	return buf.Bytes(), nil
}

// decodeContainer splits raw file bytes into header and ciphertext.
// Structural damage is reported as errMalformed; the caller maps it to the
// authentication failure surface, since a truncated file and a tampered one
// are indistinguishable to the user.
func decodeContainer(data []byte) (header, []byte, []byte, error) {
	var hdr header

	if len(data) < len(containerMagic)+4 {
		return hdr, nil, nil, errMalformed
	}
	if !bytes.Equal(data[:len(containerMagic)], containerMagic) {
		return hdr, nil, nil, errMalformed
	}

	hdrLen := binary.BigEndian.Uint32(data[len(containerMagic) : len(containerMagic)+4])
	rest := data[len(containerMagic)+4:]
	if uint32(len(rest)) < hdrLen {
		return hdr, nil, nil, errMalformed
	}

	hdrBytes := rest[:hdrLen]
	ciphertext := rest[hdrLen:]

	if err := json.Unmarshal(hdrBytes, &hdr); err != nil {
		return hdr, nil, nil, errMalformed
	}
	if hdr.Version != containerVersion || len(hdr.Salt) != saltSize || len(hdr.Nonce) == 0 {
		return hdr, nil, nil, errMalformed
	}

	return hdr, ciphertext, aadFor(hdrBytes), nil
}

// aadFor binds the ciphertext to the exact header bytes that framed it.
func aadFor(hdrBytes []byte) []byte {
	aad := make([]byte, 0, len(containerMagic)+len(hdrBytes))
	aad = append(aad, containerMagic...)
	aad = append(aad, hdrBytes...)
	return aad
}
