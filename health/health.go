package health

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/prebid/prebid-server-core/util/task"
	"github.com/prebid/prebid-server-core/util/timeutil"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// StatusResponse is the last observed state of a dependency.
type StatusResponse struct {
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// Checker reports the health of a single dependency.
// Status returns nil until the first probe has finished.
type Checker interface {
	Name() string
	Status() *StatusResponse
}

// PeriodicChecker runs a probe on a fixed period and serves the latest result without locking.
type PeriodicChecker struct {
	name         string
	probe        func(ctx context.Context) error
	probeTimeout time.Duration
	clock        timeutil.Time
	status       atomic.Value // Should only hold *StatusResponse
	ticker       *task.TickerTask
}

// NewPeriodicChecker returns a checker which runs probe every period once started.
// A non-positive period probes once on Start and never again.
func NewPeriodicChecker(name string, period time.Duration, clock timeutil.Time, probe func(ctx context.Context) error) *PeriodicChecker {
	if clock == nil {
		clock = timeutil.RealTime{}
	}
	c := &PeriodicChecker{
		name:         name,
		probe:        probe,
		probeTimeout: period,
		clock:        clock,
	}
	c.ticker = task.NewTickerTask(period, c)
	return c
}

func (c *PeriodicChecker) Name() string {
	return c.name
}

func (c *PeriodicChecker) Status() *StatusResponse {
	if status, ok := c.status.Load().(*StatusResponse); ok {
		return status
	}
	return nil
}

// Run probes the dependency once and stores the outcome.
func (c *PeriodicChecker) Run() error {
	ctx := context.Background()
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	err := c.probe(ctx)
	status := StatusUp
	if err != nil {
		status = StatusDown
		glog.Warningf("Health check %s failed: %v", c.name, err)
	}
	c.status.Store(&StatusResponse{
		Status:      status,
		LastUpdated: c.clock.Now().UTC(),
	})
	return err
}

// Start probes immediately and then on every period.
func (c *PeriodicChecker) Start() {
	c.ticker.Start()
}

func (c *PeriodicChecker) Stop() {
	c.ticker.Stop()
}

// NewDatabaseChecker reports whether a connection to db can be established.
func NewDatabaseChecker(db *sql.DB, period time.Duration, clock timeutil.Time) *PeriodicChecker {
	return NewPeriodicChecker("database", period, clock, db.PingContext)
}
