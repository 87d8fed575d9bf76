package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnEvaluationStart(ctx, "/work/app")
	p.OnStateChange(ctx, "/work/app", "idle", "checking")
	p.OnEvaluationComplete(ctx, "/work/app", EvaluationSummary{Conflicts: 1, Blocking: 1}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "peer")
	c.OnCacheMiss(ctx, "peer")
	c.OnCacheSet(ctx, "peer", 64)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "registry.npmjs.org", "/cmdk")
	h.OnResponse(ctx, "GET", "registry.npmjs.org", "/cmdk", 200, time.Second)
	h.OnError(ctx, "GET", "registry.npmjs.org", "/cmdk", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestEmbeddedNoopOverridesOneEvent(t *testing.T) {
	Reset()
	defer Reset()

	rec := &recordingPipelineHooks{}
	SetPipelineHooks(rec)

	ctx := context.Background()
	Pipeline().OnEvaluationStart(ctx, "/work/app")
	Pipeline().OnStateChange(ctx, "/work/app", "idle", "checking")
	Pipeline().OnStateChange(ctx, "/work/app", "checking", "unchanged")

	want := []string{"idle>checking", "checking>unchanged"}
	if len(rec.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", rec.transitions, want)
	}
	for i := range want {
		if rec.transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", rec.transitions, want)
		}
	}
}

// Test implementations
type recordingPipelineHooks struct {
	NoopPipelineHooks
	transitions []string
}

func (r *recordingPipelineHooks) OnStateChange(_ context.Context, _, from, to string) {
	r.transitions = append(r.transitions, from+">"+to)
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
