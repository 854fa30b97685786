package locking

import (
	"os"
	"testing"
)

func TestAcquireWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key := []byte("test-signing-key")

	lock, release, acquired, err := Acquire(dir, 8420, key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !acquired {
		t.Fatalf("expected to acquire an empty workspace's lock")
	}
	defer release()

	if lock.PID != os.Getpid() {
		t.Fatalf("PID = %d, want %d", lock.PID, os.Getpid())
	}
	if lock.Port != 8420 {
		t.Fatalf("Port = %d, want 8420", lock.Port)
	}

	read, found, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !found {
		t.Fatalf("expected the written lock to be found")
	}
	if read.PID != lock.PID || read.Port != lock.Port || read.Token != lock.Token {
		t.Fatalf("Read returned %+v, want %+v", read, lock)
	}

	if err := Verify(read, key); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(read, []byte("wrong-key")); err == nil {
		t.Fatalf("Verify succeeded with the wrong signing key")
	}
}

func TestAcquireRefusesWhenLockAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	key := []byte("test-signing-key")

	_, release, acquired, err := Acquire(dir, 8420, key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !acquired {
		t.Fatalf("expected first Acquire to succeed")
	}
	defer release()

	_, _, acquired, err = Acquire(dir, 8421, key)
	if err != nil {
		t.Fatalf("second Acquire returned an error instead of acquired=false: %v", err)
	}
	if acquired {
		t.Fatalf("expected second Acquire on the same workspace to fail")
	}
}

func TestReadAbsentLock(t *testing.T) {
	dir := t.TempDir()
	lock, found, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if found || lock != nil {
		t.Fatalf("expected no lock to be found in an empty workspace")
	}
}

func TestProcessAliveForSelfAndBogusPID(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatalf("expected the current process to report alive")
	}
	// A pid far beyond any plausible live process should report dead. This
	// is inherently a little racy on a system with billions of processes,
	// but not one this test will ever run on.
	if ProcessAlive(1 << 30) {
		t.Fatalf("expected an implausible pid to report not alive")
	}
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	_, release, acquired, err := Acquire(dir, 8420, []byte("k"))
	if err != nil || !acquired {
		t.Fatalf("Acquire: acquired=%v err=%v", acquired, err)
	}
	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, found, err := Read(dir)
	if err != nil {
		t.Fatalf("Read after release: %v", err)
	}
	if found {
		t.Fatalf("expected the lock file to be gone after release")
	}
}
