package config

import (
	"context"
	"testing"

	"github.com/san-kum/collidebench/internal/engines/builtin"
	"github.com/san-kum/collidebench/internal/manager"
	"github.com/san-kum/collidebench/internal/state"
)

// TestPresets_CrossBackendAgreement runs every bundled preset end to
// end with the analytic and sampled backends side by side. These are
// the reference scenarios, so the lanes must agree at every placement
// and keep their world states in step.
func TestPresets_CrossBackendAgreement(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			p, err := GetPreset(name)
			if err != nil {
				t.Fatal(err)
			}

			m := manager.New(state.DefaultTolerances())
			m.AddLane("analytic", builtin.New(builtin.NewAnalyticCollider()))
			m.AddLane("sampled", builtin.New(builtin.NewSampledCollider(8)))
			if err := m.LoadScenario(p.Scenario); err != nil {
				t.Fatal(err)
			}

			// A coarser grid than the shipped default keeps the run
			// short without changing which shapes meet where.
			cfg := p.Sweep
			cfg.CellSizeFactor = 0.25

			res, err := m.RunSweep(context.Background(), cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.FailedLanes) != 0 {
				t.Fatalf("failed lanes: %v", res.FailedLanes)
			}
			if len(res.Ticks) == 0 {
				t.Fatal("sweep produced no ticks")
			}
			if got := res.StateMismatchTicks(); got != 0 {
				t.Errorf("state mismatch ticks = %d, want 0", got)
			}
			if !res.Passed() {
				t.Errorf("agreement %v below %v with %d discrepant ticks",
					res.AgreementRatio(), cfg.MinAgreement, len(res.Discrepant))
				for _, tick := range res.Discrepant {
					t.Logf("tick %d at %v: %+v", tick.Index, tick.Position, tick.Verdict.Reports)
				}
			}
		})
	}
}
