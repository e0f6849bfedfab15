package truststore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock_LockUnlock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "cacerts")

	lock := NewFileLock(lockPath)

	ctx := context.Background()
	if err := lock.Lock(ctx); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	// Verify lock file was created
	lockFile := lockPath + ".lock"
	if _, err := os.Stat(lockFile); os.IsNotExist(err) {
		t.Error("Lock file was not created")
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() failed: %v", err)
	}
}

func TestFileLock_ContextTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "cacerts")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	// Acquire lock with first instance
	if err := lock1.Lock(context.Background()); err != nil {
		t.Fatalf("First Lock() failed: %v", err)
	}
	defer lock1.Unlock()

	// Try to acquire with second instance with short timeout
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := lock2.Lock(ctx)
	elapsed := time.Since(start)

	if err == nil {
		t.Error("Second Lock() should have failed due to timeout")
		lock2.Unlock()
	}

	// Should have timed out around 300ms
	if elapsed < 200*time.Millisecond {
		t.Errorf("Lock timeout was too quick: %v", elapsed)
	}
	if elapsed > 600*time.Millisecond {
		t.Errorf("Lock timeout was too slow: %v", elapsed)
	}
}

func TestFileLock_Sequential(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "cacerts")

	// A released lock must be acquirable again.
	for i := 0; i < 3; i++ {
		lock := NewFileLock(lockPath)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := lock.Lock(ctx); err != nil {
			t.Fatalf("Lock() iteration %d failed: %v", i, err)
		}
		if err := lock.Unlock(); err != nil {
			t.Fatalf("Unlock() iteration %d failed: %v", i, err)
		}
		cancel()
	}
}
