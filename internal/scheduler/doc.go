// Package scheduler runs periodic jobs.
//
// A Runner owns one job and one goroutine. Ticks are handled one at a time on
// that goroutine, so a job never overlaps with itself; a tick that arrives
// while the job is still running is dropped, the same way time.Ticker drops
// ticks for a slow receiver. A job that returns an error or panics is logged
// and the runner carries on with the next tick.
//
// The time source is a Clock. Production code uses RealClock; tests use
// schedulertest.ManualClock to fire ticks deterministically.
//
//	r, err := scheduler.NewRunner(scheduler.Options{
//	    Name:     "sensor-poll",
//	    Interval: 60 * time.Second,
//	    Logger:   log,
//	}, pollSensors)
//	r.Start(ctx)
//	defer r.Stop()
package scheduler
