package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquirePIDLockWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "talkrelay.pid")
	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		t.Fatalf("expected PID in lock file, got empty")
	}
}

func TestAcquirePIDLockRejectsSecondHolder(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "talkrelay.pid")
	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	if _, err := AcquirePIDLock(lockPath); err == nil {
		t.Fatal("second AcquirePIDLock should fail while lock is held")
	}
}

func TestProbePIDLock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "talkrelay.pid")

	held, _, err := ProbePIDLock(lockPath)
	if err != nil {
		t.Fatalf("ProbePIDLock on missing file: %v", err)
	}
	if held {
		t.Fatal("missing lock file should not report held")
	}

	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}

	held, pid, err := ProbePIDLock(lockPath)
	if err != nil {
		t.Fatalf("ProbePIDLock while held: %v", err)
	}
	if !held {
		t.Fatal("expected held=true while lock is acquired")
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	held, _, err = ProbePIDLock(lockPath)
	if err != nil {
		t.Fatalf("ProbePIDLock after release: %v", err)
	}
	if held {
		t.Fatal("released lock should not report held")
	}
}
