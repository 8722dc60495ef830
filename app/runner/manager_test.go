package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/provider"
)

func newTestManager(t *testing.T, places *fakePlaces, menus *fakeMenus) (*Manager, *fakeOutcomeRepo) {
	t.Helper()

	dir := t.TempDir()
	content := "venues:\n  - Trabuxu Bistro\nsettings:\n  enabled: true\n"
	if err := os.WriteFile(filepath.Join(dir, "valletta.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cache := config.NewCache(dir, config.Defaults{BatchSize: 10, SimilarityThreshold: 0.85, MaxPhotos: 5})
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load run configs: %v", err)
	}

	outcomeRepo := &fakeOutcomeRepo{}
	r := NewRunner(places, menus, &fakeEstablishmentRepo{}, &fakeItemRepo{}, outcomeRepo, matching.DefaultDedupThresholds())
	return NewManager(r, cache, time.Minute), outcomeRepo
}

func TestEnqueueUnknownRun(t *testing.T) {
	manager, _ := newTestManager(t, &fakePlaces{}, &fakeMenus{})

	if err := manager.Enqueue(Request{RunName: "unknown"}); err == nil {
		t.Error("Expected error for unknown run name")
	}
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	manager, _ := newTestManager(t, &fakePlaces{}, &fakeMenus{})

	// Manager not started, so the first request stays queued
	if err := manager.Enqueue(Request{RunName: "valletta"}); err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}
	if err := manager.Enqueue(Request{RunName: "valletta"}); err != ErrRunInProgress {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}
}

func TestManagerExecutesQueuedRun(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {trabuxuCandidate()}},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p1": trabuxuMenuBlob()}}
	manager, outcomeRepo := newTestManager(t, places, menus)

	manager.Start()
	defer manager.Stop()

	if err := manager.Enqueue(Request{RunName: "valletta"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if outcome, ok := outcomeRepo.get("valletta", "Trabuxu Bistro"); ok {
			if outcome.Status != database.StatusMatched {
				t.Errorf("Expected matched outcome, got %+v", outcome)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for run to execute")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManagerStopCancelsRun(t *testing.T) {
	manager, _ := newTestManager(t, &fakePlaces{}, &fakeMenus{})
	manager.Start()
	manager.Stop()

	if err := manager.Enqueue(Request{RunName: "valletta"}); err != context.Canceled {
		t.Errorf("Expected context.Canceled after stop, got %v", err)
	}
}

func TestManagerStopLeavesQueueOpen(t *testing.T) {
	manager, _ := newTestManager(t, &fakePlaces{}, &fakeMenus{})
	manager.Start()
	manager.Stop()

	// An enqueue racing past the context check may still reach the send
	// after Stop; it must not panic on a closed channel
	select {
	case manager.queue <- Request{RunName: "valletta"}:
	default:
		t.Error("Expected queue send to stay safe after stop")
	}
}
