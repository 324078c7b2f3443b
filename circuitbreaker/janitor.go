package circuitbreaker

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps stale circuit entries on a cron schedule, the
// way the teacher's CronTool drives periodic work off a single scheduler
// instead of a bespoke ticker per concern.
type Janitor struct {
	scheduler *cron.Cron
}

// StartJanitor schedules a periodic sweep against hm's tracked endpoints,
// clearing CircuitOpen on any endpoint whose backoff window has already
// elapsed so a dashboard reading GetHealthDebug between requests sees an
// up-to-date picture instead of the circuit staying marked open until the
// next RecordSuccess on that endpoint (IsHealthy only reads the state).
// schedule is a standard cron expression, e.g.
// "@every 1m". Callers must Stop the returned Janitor on shutdown.
func (hm *HealthManager) StartJanitor(schedule string) (*Janitor, error) {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, hm.sweepStale); err != nil {
		return nil, err
	}
	scheduler.Start()
	return &Janitor{scheduler: scheduler}, nil
}

// Stop halts the janitor's schedule, waiting for any in-flight sweep to
// finish.
func (j *Janitor) Stop() {
	<-j.scheduler.Stop().Done()
}

func (hm *HealthManager) sweepStale() {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	now := time.Now()
	for _, health := range hm.healthMap {
		if health.CircuitOpen && now.After(health.NextRetryTime) {
			health.CircuitOpen = false
		}
	}
}
