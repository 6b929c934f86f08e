package frame

import (
	"context"
	"testing"
	"time"
)

func TestFlagsHasAndAny(t *testing.T) {
	t.Parallel()
	f := FlagShortRef | FlagOutputPending
	if !f.Has(FlagShortRef) {
		t.Error("Has(FlagShortRef) = false, want true")
	}
	if f.Has(FlagLongRef) {
		t.Error("Has(FlagLongRef) = true, want false")
	}
	if !f.Any(FlagLongRef | FlagOutputPending) {
		t.Error("Any(FlagLongRef|FlagOutputPending) = false, want true")
	}
	if f.Any(FlagLongRef | FlagBumping) {
		t.Error("Any(FlagLongRef|FlagBumping) = true, want false")
	}
}

func TestAwaitProgressUnblocksOnReport(t *testing.T) {
	t.Parallel()
	var fr Frame
	done := make(chan bool, 1)
	go func() {
		done <- fr.AwaitProgress(context.Background(), 10)
	}()

	// give the goroutine a chance to block
	time.Sleep(10 * time.Millisecond)
	fr.ReportProgress(5)
	select {
	case <-done:
		t.Fatal("AwaitProgress(10) returned after ReportProgress(5)")
	case <-time.After(20 * time.Millisecond):
	}

	fr.ReportProgress(10)
	select {
	case cancelled := <-done:
		if cancelled {
			t.Error("AwaitProgress returned cancelled=true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress(10) did not unblock after ReportProgress(10)")
	}
}

func TestAwaitProgressDoesNotBlockWhenAlreadyPast(t *testing.T) {
	t.Parallel()
	var fr Frame
	fr.ReportProgress(20)
	done := make(chan bool, 1)
	go func() { done <- fr.AwaitProgress(context.Background(), 5) }()
	select {
	case cancelled := <-done:
		if cancelled {
			t.Error("AwaitProgress returned cancelled=true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress(5) blocked despite decodedLines already at 20")
	}
}

func TestMarkCompleteUnblocksAnyLine(t *testing.T) {
	t.Parallel()
	var fr Frame
	done := make(chan bool, 1)
	go func() { done <- fr.AwaitProgress(context.Background(), 1 << 20) }()
	time.Sleep(10 * time.Millisecond)
	fr.MarkComplete()
	select {
	case cancelled := <-done:
		if cancelled {
			t.Error("AwaitProgress returned cancelled=true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress did not unblock after MarkComplete")
	}
}

func TestCancelUnblocksWaiterWithCancelledTrue(t *testing.T) {
	t.Parallel()
	var fr Frame
	done := make(chan bool, 1)
	go func() { done <- fr.AwaitProgress(context.Background(), 100) }()
	time.Sleep(10 * time.Millisecond)
	fr.Cancel()
	select {
	case cancelled := <-done:
		if !cancelled {
			t.Error("AwaitProgress returned cancelled=false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress did not unblock after Cancel")
	}
}

func TestAwaitProgressUnblocksOnContextCancel(t *testing.T) {
	t.Parallel()
	var fr Frame
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- fr.AwaitProgress(ctx, 100) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case cancelled := <-done:
		if !cancelled {
			t.Error("AwaitProgress returned cancelled=false after ctx cancel, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress did not unblock after context cancellation")
	}
}

func TestResetBumpsGenerationAndClearsState(t *testing.T) {
	t.Parallel()
	var fr Frame
	fr.POC = 7
	fr.Flags = FlagCorrupt
	fr.ReportProgress(50)
	fr.Generation = 3

	fr.Reset()
	if fr.Generation != 4 {
		t.Errorf("Generation = %d, want 4", fr.Generation)
	}
	if fr.POC != 0 || fr.Flags != 0 {
		t.Errorf("Reset left POC=%d Flags=%v, want both zero", fr.POC, fr.Flags)
	}
	// decodedLines must also be cleared, so a fresh AwaitProgress(1) blocks.
	done := make(chan bool, 1)
	go func() { done <- fr.AwaitProgress(context.Background(), 1) }()
	select {
	case <-done:
		t.Fatal("AwaitProgress(1) returned immediately after Reset, want it to block")
	case <-time.After(20 * time.Millisecond):
	}
	fr.ReportProgress(1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AwaitProgress(1) never unblocked after post-Reset ReportProgress(1)")
	}
}
