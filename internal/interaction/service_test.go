package interaction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/pkg/domain"
)

func newTestLog(t *testing.T) *eventlog.Log {
	t.Helper()
	log, err := eventlog.Open(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRequestAndRespondResolvesPending(t *testing.T) {
	svc := NewService(newTestLog(t))
	ctx := context.Background()

	id, err := svc.RequestInteraction(ctx, "task-1", RequestSpec{
		Kind: domain.InteractionConfirm, Purpose: "confirm_risky_action", Prompt: "run rm -rf?",
		Options: []domain.InteractionOption{{ID: "approve", Label: "Approve"}, {ID: "reject", Label: "Reject"}},
	})
	if err != nil {
		t.Fatalf("RequestInteraction: %v", err)
	}

	pending, ok, err := svc.GetPendingInteraction(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetPendingInteraction: %v", err)
	}
	if !ok || pending.ID != id {
		t.Fatalf("expected pending interaction %q, got %+v ok=%v", id, pending, ok)
	}

	if err := svc.RespondToInteraction(ctx, "task-1", id, ResponseSpec{SelectedOptionID: "approve"}); err != nil {
		t.Fatalf("RespondToInteraction: %v", err)
	}

	_, ok, err = svc.GetPendingInteraction(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetPendingInteraction after respond: %v", err)
	}
	if ok {
		t.Fatal("expected no pending interaction after response")
	}
}

func TestWaitForResponseReturnsOnResponse(t *testing.T) {
	svc := NewService(newTestLog(t))
	ctx := context.Background()

	id, err := svc.RequestInteraction(ctx, "task-1", RequestSpec{Kind: domain.InteractionConfirm, Purpose: "x", Prompt: "y"})
	if err != nil {
		t.Fatalf("RequestInteraction: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = svc.RespondToInteraction(context.Background(), "task-1", id, ResponseSpec{SelectedOptionID: "approve"})
	}()

	resp, err := svc.WaitForResponse(ctx, "task-1", id, 5*time.Millisecond, time.Time{})
	if err != nil {
		t.Fatalf("WaitForResponse: %v", err)
	}
	if resp.SelectedOptionID != "approve" {
		t.Fatalf("SelectedOptionID = %q, want approve", resp.SelectedOptionID)
	}
}

func TestWaitForResponseTimesOut(t *testing.T) {
	svc := NewService(newTestLog(t))
	ctx := context.Background()

	id, err := svc.RequestInteraction(ctx, "task-1", RequestSpec{Kind: domain.InteractionConfirm, Purpose: "x", Prompt: "y"})
	if err != nil {
		t.Fatalf("RequestInteraction: %v", err)
	}

	_, err = svc.WaitForResponse(ctx, "task-1", id, 5*time.Millisecond, time.Now().Add(20*time.Millisecond))
	if domain.KindOf(err) != domain.KindTimeout {
		t.Fatalf("err = %v, want KindTimeout", err)
	}
}
