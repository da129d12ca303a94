package async_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/async"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

type recordingProcessor struct {
	mu    sync.Mutex
	paths [][]string
	ids   []string
	fail  string
	opts  []pipeline.RunOptions
}

func (r *recordingProcessor) ProcessPaths(ctx context.Context, paths []string, opts pipeline.RunOptions) (*pipeline.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths)
	r.opts = append(r.opts, opts)
	r.ids = append(r.ids, common.RequestIDFromContext(ctx))
	if len(paths) > 0 && paths[0] == r.fail {
		return nil, errors.New("boom")
	}
	return &pipeline.Outcome{Batch: &entity.Batch{ID: "b_x"}}, nil
}

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	proc := &recordingProcessor{fail: "bad.png"}
	q := async.NewProcessorQueue(proc, nil, async.WithWorkers(3), async.WithQueueSize(4))

	ctx := context.Background()
	for _, p := range []string{"a.pdf", "bad.png", "c.jpg", "d.heic", "e.png"} {
		if err := q.Enqueue(ctx, async.Job{Paths: []string{p}, TraceID: "t-" + p}); err != nil {
			t.Fatal(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.paths) != 5 {
		t.Fatalf("processed %d jobs, want 5", len(proc.paths))
	}
	for _, id := range proc.ids {
		if id == "" || id[:2] != "t-" {
			t.Errorf("trace id not propagated: %q", id)
		}
	}

	if err := q.Enqueue(ctx, async.Job{Paths: []string{"late.pdf"}}); !errors.Is(err, async.ErrQueueClosed) {
		t.Errorf("enqueue after shutdown: %v", err)
	}
	q.Shutdown(ctx)
}

func TestProcessorQueue_RunOptions(t *testing.T) {
	proc := &recordingProcessor{}
	clear := true
	want := pipeline.RunOptions{Forward: true}
	want.ClearExisting = &clear
	q := async.NewProcessorQueue(proc, nil, async.WithRunOptions(want), async.WithProcessTimeout(time.Second))

	ctx := context.Background()
	if err := q.Enqueue(ctx, async.Job{Paths: []string{"menu.pdf"}}); err != nil {
		t.Fatal(err)
	}
	q.Shutdown(ctx)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.opts) != 1 || !proc.opts[0].Forward || proc.opts[0].ClearExisting == nil || !*proc.opts[0].ClearExisting {
		t.Errorf("run options = %+v, want %+v", proc.opts, want)
	}
}
