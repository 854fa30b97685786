// Package locking implements the workspace's single-master lock file:
// exactly one seedd process may hold a given workspace at a time.
package locking

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FileName is the lock file's name inside the workspace root.
const FileName = ".seed.lock"

// MasterLock is the payload recorded in a workspace's .seed.lock while a
// seedd process holds it: enough for a second process (or the `seed
// status`/`seed stop` CLI) to find the master and prove it's talking to
// the same one that wrote the lock.
type MasterLock struct {
	PID       int    `json:"pid"`
	Port      int    `json:"port"`
	Token     string `json:"token"`
	StartedAt string `json:"startedAt"`
}

// tokenClaims embeds the standard registered claims plus the random token
// the lock file carries, signed so a Token obtained from a .seed.lock can
// be verified (not merely compared) by a client that only knows the
// workspace's signing key — grounds the spec's "pid+port+token" triple in
// a real signature rather than an opaque random string.
type tokenClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// Acquire writes the workspace's lock file if absent, returning a Release
// func and the signed MasterLock it wrote. If a lock file already exists
// Acquire returns (nil, nil, false, nil) rather than an error, so the
// daemon can decide how to report "already running" (spec: `seed serve`
// exits non-zero, `seed status` reports inactive-but-lock-held, etc.)
func Acquire(workspaceRoot string, port int, signingKey []byte) (lock *MasterLock, release func() error, acquired bool, err error) {
	path := filepath.Join(workspaceRoot, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("locking: create %s: %w", path, err)
	}
	defer f.Close()

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		os.Remove(path)
		return nil, nil, false, fmt.Errorf("locking: nonce: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Nonce: hex.EncodeToString(nonce),
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		os.Remove(path)
		return nil, nil, false, fmt.Errorf("locking: sign token: %w", err)
	}

	ml := &MasterLock{
		PID:       os.Getpid(),
		Port:      port,
		Token:     signed,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(f).Encode(ml); err != nil {
		os.Remove(path)
		return nil, nil, false, fmt.Errorf("locking: write lock: %w", err)
	}

	return ml, func() error { return os.Remove(path) }, true, nil
}

// Read loads the current lock file, or (nil, false, nil) if absent.
func Read(workspaceRoot string) (*MasterLock, bool, error) {
	path := filepath.Join(workspaceRoot, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("locking: read %s: %w", path, err)
	}
	var ml MasterLock
	if err := json.Unmarshal(b, &ml); err != nil {
		return nil, false, fmt.Errorf("locking: decode %s: %w", path, err)
	}
	return &ml, true, nil
}

// Verify checks that token was signed with signingKey and belongs to lock.
func Verify(lock *MasterLock, signingKey []byte) error {
	_, err := jwt.ParseWithClaims(lock.Token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	})
	if err != nil {
		return fmt.Errorf("locking: verify token: %w", err)
	}
	return nil
}

// ProcessAlive reports whether pid refers to a running process. On POSIX,
// signal 0 checks existence without affecting the process (a stale lock
// file left by a crashed seedd is detected this way so `seed serve` can
// safely reclaim it).
func ProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscallSignal0) == nil
}
