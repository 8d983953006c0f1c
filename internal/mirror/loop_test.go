package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkessler/treesyncd/internal/testutil"
)

func TestLoop_RunsCyclesUntilCancelled(t *testing.T) {
	srcRoot := t.TempDir()
	repRoot := t.TempDir()
	testutil.WriteTree(t, srcRoot, map[string]string{"a.txt": "first"})

	rec := NewReconciler(srcRoot, repRoot, testLogger())
	loop := NewLoop(rec, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	// The first cycle runs immediately; wait for its effect.
	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(repRoot, "a.txt"))
		return err == nil
	})

	// Mutations are picked up by a later cycle.
	testutil.WriteTree(t, srcRoot, map[string]string{"b.txt": "second"})
	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(repRoot, "b.txt"))
		return err == nil
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on cancellation: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}

func TestLoop_CancelledDuringWait(t *testing.T) {
	srcRoot := t.TempDir()
	rec := NewReconciler(srcRoot, t.TempDir(), testLogger())
	loop := NewLoop(rec, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	// Give the first cycle time to complete, then interrupt the wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not observe cancellation at the wait boundary")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
