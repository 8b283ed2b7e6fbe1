// internal/driver/build_test.go
package driver

import (
	"context"
	"testing"

	"github.com/irdevice/querycore/internal/config"
)

func planOnlyConfig() *config.Config {
	return &config.Config{
		Devices: []config.DeviceConfig{
			{
				ID:       "meter-1",
				Protocol: "modbus_tcp",
				Endpoint: "10.0.0.1:502",
				Registers: []config.RegisterConfig{
					{Name: "voltage", Type: "holding", Format: "u16", BitWidth: 16, Address: 100},
					{Name: "current", Type: "holding", Format: "u16", BitWidth: 16, Address: 101},
				},
			},
		},
	}
}

func TestBuildPlanOnly_MergesAdjacentRegistersIntoOneQuery(t *testing.T) {
	drv, err := BuildPlanOnly(planOnlyConfig())
	if err != nil {
		t.Fatalf("BuildPlanOnly: %v", err)
	}

	plans := drv.Plan()
	if len(plans) != 1 {
		t.Fatalf("got %d device plans, want 1", len(plans))
	}
	dp := plans[0]
	if dp.DeviceID != "meter-1" {
		t.Fatalf("DeviceID = %q, want meter-1", dp.DeviceID)
	}
	if len(dp.PollGroups) != 1 {
		t.Fatalf("got %d poll groups, want 1 (both registers share the default interval)", len(dp.PollGroups))
	}
	pg := dp.PollGroups[0]
	if len(pg.Queries) != 1 {
		t.Fatalf("got %d queries, want 1 (adjacent holding registers should merge)", len(pg.Queries))
	}
	q := pg.Queries[0]
	if q.Start != 100 || q.Count != 2 {
		t.Fatalf("query = start %d count %d, want start 100 count 2", q.Start, q.Count)
	}
}

func TestBuildPlanOnly_UnknownTypeIsAnError(t *testing.T) {
	cfg := planOnlyConfig()
	cfg.Devices[0].Registers[0].Type = "nonexistent"
	if _, err := BuildPlanOnly(cfg); err == nil {
		t.Fatal("expected error for unknown register type")
	}
}

func TestBuildPlanOnly_SeparatesDistinctPollIntervals(t *testing.T) {
	cfg := planOnlyConfig()
	cfg.Devices[0].Registers[1].PollIntervalMs = 5000
	drv, err := BuildPlanOnly(cfg)
	if err != nil {
		t.Fatalf("BuildPlanOnly: %v", err)
	}
	if len(drv.Plan()[0].PollGroups) != 2 {
		t.Fatalf("got %d poll groups, want 2 (distinct intervals don't merge)", len(drv.Plan()[0].PollGroups))
	}
}

func TestDriver_SetTextValue_ArmsFlushAndMarksDirty(t *testing.T) {
	drv, err := BuildPlanOnly(planOnlyConfig())
	if err != nil {
		t.Fatalf("BuildPlanOnly: %v", err)
	}

	rt := drv.devices[0]
	var vr = rt.vregs[0]
	if vr.Dirty() {
		t.Fatal("register should not start dirty")
	}

	if err := drv.SetTextValue("meter-1", vr.Name(), "42"); err != nil {
		t.Fatalf("SetTextValue: %v", err)
	}
	if !vr.Dirty() {
		t.Fatal("expected register to be marked dirty after SetTextValue")
	}

	// SetTextValue already armed the flush signal; wait should return
	// immediately without blocking.
	if err := rt.flush.wait(context.Background()); err != nil {
		t.Fatalf("flush.wait: %v", err)
	}
}

func TestDriver_SetTextValue_UnknownDeviceIsAnError(t *testing.T) {
	drv, err := BuildPlanOnly(planOnlyConfig())
	if err != nil {
		t.Fatalf("BuildPlanOnly: %v", err)
	}
	if err := drv.SetTextValue("no-such-device", "voltage", "1"); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestDriver_SetTextValue_UnknownRegisterIsAnError(t *testing.T) {
	drv, err := BuildPlanOnly(planOnlyConfig())
	if err != nil {
		t.Fatalf("BuildPlanOnly: %v", err)
	}
	if err := drv.SetTextValue("meter-1", "no-such-register", "1"); err == nil {
		t.Fatal("expected error for unknown register")
	}
}
