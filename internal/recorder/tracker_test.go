package recorder

import (
	"sync"
	"testing"
	"time"
)

func TestTracker_AcquireRelease(t *testing.T) {
	tracker := NewTracker()

	tracker.Acquire()
	tracker.Acquire()
	if got := tracker.Active(); got != 2 {
		t.Fatalf("Expected 2 active, got %d", got)
	}

	if !tracker.Release() {
		t.Error("Expected release to succeed")
	}
	if !tracker.Release() {
		t.Error("Expected release to succeed")
	}
	if got := tracker.Active(); got != 0 {
		t.Errorf("Expected 0 active, got %d", got)
	}
}

func TestTracker_ReleaseClampsAtZero(t *testing.T) {
	tracker := NewTracker()

	if tracker.Release() {
		t.Error("Expected release on idle tracker to report an anomaly")
	}
	if got := tracker.Active(); got != 0 {
		t.Errorf("Active count went below zero: %d", got)
	}
	if got := tracker.Anomalies(); got != 1 {
		t.Errorf("Expected 1 anomaly, got %d", got)
	}
}

func TestTracker_ConcurrentReleases(t *testing.T) {
	tracker := NewTracker()
	const n = 100
	for i := 0; i < n; i++ {
		tracker.Acquire()
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Release()
		}()
	}
	wg.Wait()

	if got := tracker.Active(); got != 0 {
		t.Errorf("Expected 0 active after concurrent releases, got %d", got)
	}
	if got := tracker.Anomalies(); got != 0 {
		t.Errorf("Expected no anomalies, got %d", got)
	}
}

func TestTracker_WaitIdle(t *testing.T) {
	tracker := NewTracker()

	// 実行中の録画がなければ即座に戻る
	done := make(chan struct{})
	go func() {
		tracker.WaitIdle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitIdle blocked on an idle tracker")
	}

	tracker.Acquire()
	done = make(chan struct{})
	go func() {
		tracker.WaitIdle()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitIdle returned while a recording is active")
	case <-time.After(50 * time.Millisecond):
	}

	tracker.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not return after the last release")
	}
}
