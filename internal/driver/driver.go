// internal/driver/driver.go
//
// Driver runs the poll/flush cycle: each device's poll groups tick
// independently on their own interval, and every device also runs a
// flush loop that wakes on its flushSignal (armed by SetTextValue, backed
// by a periodic self-notify so a missed wakeup is never fatal) and drains
// any register a write left dirty. There's no cross-device coordination
// and no shared goroutine — one device's slow bus never blocks another's.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irdevice/querycore/internal/status"
	"github.com/irdevice/querycore/internal/vregister"
)

const flushInterval = 200 * time.Millisecond
const statusInterval = time.Second

// Driver owns every device this process polls.
type Driver struct {
	devices []*deviceRuntime
}

// Devices exposes the ids Build wired up, for status reporting and CLI
// output (e.g. `serve`'s startup log).
func (d *Driver) Devices() []string {
	ids := make([]string, len(d.devices))
	for i, rt := range d.devices {
		ids[i] = rt.cfg.ID
	}
	return ids
}

// QueryPlan describes one read query GenerateQuerySets produced: the
// contiguous span it covers and the registers riding along with it.
type QueryPlan struct {
	Type      string
	Start     uint32
	Count     uint16
	Registers []string
}

// PollGroupPlan is one poll interval's worth of queries for one device.
type PollGroupPlan struct {
	PollIntervalMs int64
	Queries        []QueryPlan
}

// DevicePlan is everything BuildPlanOnly/Build worked out for one device
// without touching its wire, for the `plan` CLI command.
type DevicePlan struct {
	DeviceID   string
	PollGroups []PollGroupPlan
}

// SetTextValue decodes text through registerName's formatter, queues it
// for write, and wakes that device's flush loop immediately instead of
// waiting for the next flush tick.
func (d *Driver) SetTextValue(deviceID, registerName, text string) error {
	for _, rt := range d.devices {
		if rt.cfg.ID != deviceID {
			continue
		}
		for _, vr := range rt.vregs {
			if vr.Name() != registerName {
				continue
			}
			if err := vr.SetTextValue(text); err != nil {
				return err
			}
			rt.flush.notify()
			return nil
		}
		return fmt.Errorf("driver: device %q has no register %q", deviceID, registerName)
	}
	return fmt.Errorf("driver: unknown device %q", deviceID)
}

// Plan renders the query plan Build/BuildPlanOnly already computed.
func (d *Driver) Plan() []DevicePlan {
	out := make([]DevicePlan, 0, len(d.devices))
	for _, rt := range d.devices {
		dp := DevicePlan{DeviceID: rt.cfg.ID}
		for _, pg := range rt.pollGroups {
			pgp := PollGroupPlan{PollIntervalMs: pg.PollIntervalMs}
			for _, q := range pg.Set.Queries {
				names := make([]string, 0, len(q.Registers()))
				for _, vr := range q.Registers() {
					names = append(names, vr.Name())
				}
				pgp.Queries = append(pgp.Queries, QueryPlan{
					Type:      q.Type().Name,
					Start:     q.Start(),
					Count:     q.Count(),
					Registers: names,
				})
			}
			dp.PollGroups = append(dp.PollGroups, pgp)
		}
		out = append(out, dp)
	}
	return out
}

// Run starts one poll loop per poll group, plus one flush loop and one
// status loop per device, and blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context, log *logrus.Logger) {
	var wg sync.WaitGroup
	for _, rt := range d.devices {
		rt := rt
		entry := log.WithField("device", rt.cfg.ID)

		for _, pg := range rt.pollGroups {
			pg := pg
			wg.Add(1)
			go func() {
				defer wg.Done()
				runPollGroup(ctx, rt, pg, entry)
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			runFlushLoop(ctx, rt, entry)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			runStatusLoop(ctx, rt, entry)
		}()
	}
	wg.Wait()
}

func runStatusLoop(ctx context.Context, rt *deviceRuntime, log *logrus.Entry) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var lastHealth uint16 = status.HealthUnknown
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := rt.statusPub.Tick(rt.vregs)
			if snap.Health != lastHealth {
				log.WithFields(logrus.Fields{
					"health":           snap.Health,
					"last_error_code":  snap.LastErrorCode,
					"seconds_in_error": snap.SecondsInError,
				}).Info("device health changed")
				lastHealth = snap.Health
			}
		}
	}
}

func runPollGroup(ctx context.Context, rt *deviceRuntime, pg vregister.PollGroup, log *logrus.Entry) {
	interval := time.Duration(pg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollOnce(rt, pg, log)
		}
	}
}

// pollOnce executes every query in a poll group's set in order. A query's
// failure is recorded on its own registers (Query.MarkFailed does that
// inside Device.Execute) and never aborts the rest of the set.
func pollOnce(rt *deviceRuntime, pg vregister.PollGroup, log *logrus.Entry) {
	for _, q := range pg.Set.Queries {
		if err := rt.dev.Execute(q); err != nil {
			log.WithFields(logrus.Fields{
				"type":  q.Type().Name,
				"start": q.Start(),
				"count": q.Count(),
				"err":   err,
			}).Warn("read query failed")
		}
	}
}

// runFlushLoop wakes on rt.flush, so a write lands within one bus round
// trip instead of waiting out flushInterval. A side ticker self-notifies
// on every tick so a wakeup no SetTextValue call ever arms is still
// delivered eventually.
func runFlushLoop(ctx context.Context, rt *deviceRuntime, log *logrus.Entry) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rt.flush.notify()
			}
		}
	}()

	for {
		if err := rt.flush.wait(ctx); err != nil {
			return
		}
		flushOnce(rt, log)
	}
}

func flushOnce(rt *deviceRuntime, log *logrus.Entry) {
	for _, vr := range rt.vregs {
		if !vr.Dirty() {
			continue
		}
		if err := vr.Flush(rt.dev); err != nil {
			log.WithFields(logrus.Fields{
				"register": vr.Name(),
				"err":      err,
			}).Warn("write flush failed")
		}
	}
}
