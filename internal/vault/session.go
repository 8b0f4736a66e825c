package vault

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notes"
)

const sessionPerm = 0o600

// sessionFile is the persisted unlock session. It holds a random session
// key, the vault master key sealed under that session key, and a signed
// ticket binding the two to an expiry. Everything needed to unseal is local
// to the file; protection rests on the 0600 file mode, the same model as an
// ssh agent socket.
type sessionFile struct {
	Token  string `json:"token"`
	Key    string `json:"key"`
	Sealed string `json:"sealed"`
}

// sessionClaims is the JWT payload of an unlock ticket. Verifier pins the
// ticket to one specific master key so a session file cannot be replayed
// against a re-keyed vault.
type sessionClaims struct {
	Verifier string `json:"verifier"`
	jwt.RegisteredClaims
}

// SessionPath returns the unlock-session file path for a container.
func SessionPath(containerPath string) string {
	return containerPath + ".session"
}

// SaveSession writes an unlock session valid for ttl next to the container.
// While the session is valid the vault can be reopened without the
// credential via OpenWithSession.
func (s *Store) SaveSession(ctx context.Context, ttl time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return common.ErrVaultClosed
	}

	sessionKey := common.GenerateRandByteArray(32)
	defer common.WipeByteArray(sessionKey)

	sealed, err := cryptox.WrapKey(s.key, sessionKey)
	if err != nil {
		return fmt.Errorf("%w: seal master key: %v", common.ErrStorage, err)
	}

	now := time.Now().UTC()
	claims := sessionClaims{
		Verifier: hex.EncodeToString(cryptox.MakeVerifier(s.key)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.path,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessionKey)
	if err != nil {
		return fmt.Errorf("%w: sign session ticket: %v", common.ErrStorage, err)
	}

	data, err := json.Marshal(sessionFile{
		Token:  token,
		Key:    hex.EncodeToString(sessionKey),
		Sealed: hex.EncodeToString(sealed),
	})
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", common.ErrStorage, err)
	}

	path := SessionPath(s.path)
	if err := filex.WriteAtomic(path, data, sessionPerm); err != nil {
		return fmt.Errorf("%w: write session %s: %v", common.ErrStorage, path, err)
	}

	s.log.Info(ctx, "unlock session saved", "path", path, "expires_at", claims.ExpiresAt.Time)
	return nil
}

// ClearSession removes the unlock session for a container, if any.
func ClearSession(containerPath string) error {
	err := os.Remove(SessionPath(containerPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove session: %v", common.ErrStorage, err)
	}
	return nil
}

// OpenWithSession unlocks the container using a previously saved session
// instead of the credential. An expired ticket returns ErrSessionExpired; a
// missing, damaged or mismatched session returns ErrSessionInvalid.
func OpenWithSession(ctx context.Context, path string, opts Options) (*Store, error) {
	masterKey, err := loadSessionKey(path)
	if err != nil {
		return nil, err
	}

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
	if err != nil {
		common.WipeByteArray(masterKey)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: container %s missing", common.ErrSessionInvalid, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, path, err)
	}

	hdr, ciphertext, aad, err := decodeContainer(data)
	if err != nil {
		common.WipeByteArray(masterKey)
		return nil, fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}
	if err := s.unlockWithKey(hdr, ciphertext, aad, masterKey); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "vault opened from session", "path", path, "notes", s.index.len())
	return s, nil
}

// loadSessionKey reads and validates the session file and returns the
// unsealed master key.
func loadSessionKey(containerPath string) ([]byte, error) {
	raw, err := os.ReadFile(SessionPath(containerPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no session for %s", common.ErrSessionInvalid, containerPath)
		}
		return nil, fmt.Errorf("%w: read session: %v", common.ErrStorage, err)
	}

	var sf sessionFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", common.ErrSessionInvalid, err)
	}
	sessionKey, err := hex.DecodeString(sf.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: decode session key: %v", common.ErrSessionInvalid, err)
	}
	defer common.WipeByteArray(sessionKey)
	sealed, err := hex.DecodeString(sf.Sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: decode sealed key: %v", common.ErrSessionInvalid, err)
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(sf.Token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return sessionKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", common.ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrSessionInvalid, err)
	}
	if claims.Subject != containerPath {
		return nil, fmt.Errorf("%w: session is for a different container", common.ErrSessionInvalid)
	}

	masterKey, err := cryptox.UnwrapKey(sealed, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: unseal master key: %v", common.ErrSessionInvalid, err)
	}
	if hex.EncodeToString(cryptox.MakeVerifier(masterKey)) != claims.Verifier {
		common.WipeByteArray(masterKey)
		return nil, fmt.Errorf("%w: verifier mismatch", common.ErrSessionInvalid)
	}
	return masterKey, nil
}
