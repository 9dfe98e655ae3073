package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunner_RunsJobWithBaseContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(zap.NewNop(), ctx)
	var calls int32
	done := make(chan struct{}, 1)
	if _, err := r.Add("tick", "* * * * * *", func(jobCtx context.Context) {
		if jobCtx != ctx {
			t.Errorf("job context is not the base context")
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			done <- struct{}{}
		}
	}); err != nil {
		t.Fatalf("Add err=%v", err)
	}
	if len(r.Entries()) != 1 {
		t.Fatalf("entries=%d want=1", len(r.Entries()))
	}
	r.Start()
	defer r.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}
