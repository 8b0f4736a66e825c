// Package cryptox implements the cryptographic primitives of the vault:
// Argon2id key derivation, AES-GCM payload encryption and per-blob
// data-key wrapping for attachments.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

var ErrShortCiphertext = errors.New("ciphertext shorter than nonce")

// KDFParams are the Argon2id work-factor parameters. They are persisted in
// the container header so existing vaults keep decrypting after defaults
// are raised.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// DefaultKDFParams returns the current recommended Argon2id parameters
// (64 MiB, one pass, four lanes, 256-bit key).
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

// DeriveMasterKey derives a symmetric key from a credential and salt using
// Argon2id with the given parameters. The same inputs always produce the
// same key.
func DeriveMasterKey(credential []byte, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(credential, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// MakeVerifier returns a SHA-256 digest of the master key. The verifier never
// leaves the local machine; it is used to sign unlock-session tickets and to
// reject a wrong credential without attempting a full decrypt.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// NewNonce returns a fresh random 12-byte AES-GCM nonce.
func NewNonce() []byte {
	return common.GenerateRandByteArray(12)
}

// EncryptPayload serializes v to JSON and encrypts it with AES-GCM under the
// given 12-byte nonce.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). The nonce
// must be fresh for every call (see NewNonce); it is the caller's job to
// persist it next to the ciphertext. The aad bytes are authenticated but not
// encrypted; passing the container header as aad ties the ciphertext to its
// header.
func EncryptPayload(v any, key, nonce, aad []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, aad), nil
}

// DecryptPayload decrypts an AES-GCM ciphertext produced by EncryptPayload
// and unmarshals the resulting JSON into v. The key, nonce and aad must match
// the ones used during encryption; any mismatch fails authentication.
func DecryptPayload(ciphertext, nonce, key, aad []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

// EncryptedBlob is the result of encrypting an opaque byte blob with a fresh
// random data key. The data key itself is expected to be wrapped with
// WrapKey before being persisted next to the ciphertext.
type EncryptedBlob struct {
	Ciphertext []byte
	Key        []byte
	Nonce      []byte
}

// EncryptBlob encrypts data (e.g. a recorded audio buffer) under a fresh
// random 256-bit data key so large blobs never force a master-key re-encrypt.
func EncryptBlob(data []byte) (*EncryptedBlob, error) {
	key := common.GenerateRandByteArray(32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext := aesgcm.Seal(nil, nonce, data, nil)

	return &EncryptedBlob{Ciphertext: ciphertext, Key: key, Nonce: nonce}, nil
}

// DecryptBlob reverses EncryptBlob given the unwrapped data key and nonce.
func DecryptBlob(ciphertext, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

// WrapKey encrypts a data key with the master key. The returned bytes are
// nonce||ciphertext so the pair can be stored in a single column.
func WrapKey(dataKey, masterKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, dataKey, nil), nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(wrapped, masterKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < aesgcm.NonceSize() {
		return nil, ErrShortCiphertext
	}
	nonce, ciphertext := wrapped[:aesgcm.NonceSize()], wrapped[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
