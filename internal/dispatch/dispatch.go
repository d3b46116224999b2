// Package dispatch executes the configured number of request attempts under
// a fixed concurrency bound and converts every per-attempt outcome, success
// or failure, into a ledger record. Failures never propagate past their own
// attempt.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NodePath81/sirius/internal/client"
	"github.com/NodePath81/sirius/internal/config"
	"github.com/NodePath81/sirius/internal/ledger"
	"github.com/NodePath81/sirius/internal/util"
)

// Progress is reported after each record is appended.
type Progress struct {
	Completed int
	Total     int
	Elapsed   time.Duration
}

// Result is what a finished (or cancelled) run hands to the statistics
// layer. The ledger holds one record per completed attempt; Duration spans
// first submission to last append.
type Result struct {
	Ledger    *ledger.Ledger
	Start     time.Time
	Duration  time.Duration
	Cancelled bool
}

type Dispatcher struct {
	spec   config.RequestSpec
	doer   client.Doer
	total  int
	slots  int
	logger util.Logger

	// OnProgress, when set, is called after every append with the current
	// completed count. It must be fast; it runs on a worker goroutine.
	OnProgress func(Progress)
}

func New(spec config.RequestSpec, doer client.Doer, total, concurrency int, logger util.Logger) *Dispatcher {
	slots := concurrency
	if slots > total {
		// C > N is legal and degrades to N parallel attempts.
		slots = total
	}
	return &Dispatcher{
		spec:   spec,
		doer:   doer,
		total:  total,
		slots:  slots,
		logger: logger,
	}
}

// Run executes the attempts. Cancelling ctx stops handing out new indices;
// in-flight attempts finish or hit their own timeout, so a cancelled run
// still returns a valid partial ledger.
func (d *Dispatcher) Run(ctx context.Context) *Result {
	led := ledger.New(d.total)
	start := time.Now()
	startEpoch := float64(start.UnixNano()) / 1e9

	indices := make(chan int)
	go func() {
		defer close(indices)
		for i := 0; i < d.total; i++ {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	d.logger.Info("dispatch started",
		"url", d.spec.URL,
		"method", d.spec.Method,
		"requests", d.total,
		"concurrency", d.slots,
		"timeout", d.spec.Timeout,
	)

	var wg sync.WaitGroup
	for w := 0; w < d.slots; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				d.attempt(idx, start, startEpoch, led)
			}
		}()
	}
	wg.Wait()

	res := &Result{
		Ledger:    led,
		Start:     start,
		Duration:  time.Since(start),
		Cancelled: ctx.Err() != nil,
	}
	d.logger.Info("dispatch finished",
		"completed", led.Len(),
		"duration_ms", res.Duration.Milliseconds(),
		"cancelled", res.Cancelled,
	)
	return res
}

func (d *Dispatcher) attempt(idx int, runStart time.Time, runStartEpoch float64, led *ledger.Ledger) {
	attemptStart := time.Now()
	rec := ledger.Record{
		Index:      idx,
		StartEpoch: runStartEpoch + attemptStart.Sub(runStart).Seconds(),
		StartRelS:  attemptStart.Sub(runStart).Seconds(),
	}

	// The attempt context is deliberately not derived from the run context:
	// cancellation must let in-flight attempts finish or time out naturally.
	attemptCtx, cancel := context.WithTimeout(context.Background(), d.spec.Timeout)
	res, err := d.doer.Do(attemptCtx, d.spec)
	cancel()

	rec.TimeS = time.Since(attemptStart).Seconds()
	if err != nil {
		if client.IsTimeout(err) {
			rec.Error = fmt.Sprintf("timeout after %s", d.spec.Timeout)
		} else {
			rec.Error = err.Error()
		}
		d.logger.Debug("attempt failed", "index", idx, "error", rec.Error)
	} else {
		status := res.Status
		rec.Status = &status
		rec.OK = status >= 200 && status < 400
		rec.Bytes = res.Bytes
	}

	led.Append(rec)
	if d.OnProgress != nil {
		d.OnProgress(Progress{
			Completed: led.Len(),
			Total:     d.total,
			Elapsed:   time.Since(runStart),
		})
	}
}
