package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCheckAll_AllDependenciesUp(t *testing.T) {
	r := NewRegistry()
	r.Register("intel", func(context.Context) error { return nil })
	r.Register("model_artifact", func(context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("expected healthy aggregate")
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, st := range statuses {
		if !st.Healthy || st.Detail != "" {
			t.Errorf("%s: healthy=%v detail=%q", st.Name, st.Healthy, st.Detail)
		}
	}
}

func TestCheckAll_FailingProviderDegradesAggregate(t *testing.T) {
	r := NewRegistry()
	r.Register("intel", func(context.Context) error { return nil })
	r.Register("etherscan", func(context.Context) error {
		return errors.New("circuit open for etherscan:ethereum")
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Error("aggregate should be unhealthy when a provider check fails")
	}
	if statuses[0].Name != "intel" || !statuses[0].Healthy {
		t.Errorf("intel status = %+v", statuses[0])
	}
	if statuses[1].Name != "etherscan" || statuses[1].Healthy {
		t.Errorf("etherscan status = %+v", statuses[1])
	}
	if statuses[1].Detail != "circuit open for etherscan:ethereum" {
		t.Errorf("detail = %q", statuses[1].Detail)
	}
}

func TestCheckAll_EmptyRegistryIsHealthy(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	if !healthy {
		t.Error("empty registry should report healthy")
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0", len(statuses))
	}
}

func TestRegister_ReplacesCheckKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("model_artifact", func(context.Context) error {
		return errors.New("artifact not loaded")
	})
	r.Register("intel", func(context.Context) error { return nil })

	// The artifact finishes loading and its check is swapped for a passing one.
	r.Register("model_artifact", func(context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("expected healthy after the replacement check passes")
	}
	if len(statuses) != 2 || statuses[0].Name != "model_artifact" {
		t.Errorf("statuses = %+v", statuses)
	}
}

func TestCheckAll_ContextReachesChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRegistry()
	r.Register("rpc", func(cctx context.Context) error { return cctx.Err() })

	healthy, statuses := r.CheckAll(ctx)
	if healthy {
		t.Error("cancelled context should fail the rpc check")
	}
	if statuses[0].Detail != context.Canceled.Error() {
		t.Errorf("detail = %q", statuses[0].Detail)
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("intel", func(context.Context) error { return nil })
		}()
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}
	wg.Wait()
}
