package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/pollconf/internal/observability"
)

// RunPoolMonitor samples pool statistics into Prometheus every interval until ctx is cancelled.
// pgxpool exposes cumulative counters, so counters are advanced by the delta since the last sample.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last poolCounters
	for {
		last = samplePool(pool, last)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poolCounters remembers the cumulative values seen at the previous sample.
type poolCounters struct {
	acquires        int64
	emptyAcquires   int64
	acquireDuration time.Duration
}

func samplePool(pool *pgxpool.Pool, last poolCounters) poolCounters {
	stat := pool.Stat()

	observability.DBPoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	observability.DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	observability.DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	observability.DBPoolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))

	cur := poolCounters{
		acquires:        stat.AcquireCount(),
		emptyAcquires:   stat.EmptyAcquireCount(),
		acquireDuration: stat.AcquireDuration(),
	}
	if d := cur.acquires - last.acquires; d > 0 {
		observability.DBPoolAcquireCount.Add(float64(d))
	}
	if d := cur.emptyAcquires - last.emptyAcquires; d > 0 {
		observability.DBPoolWaitCount.Add(float64(d))
	}
	if d := cur.acquireDuration - last.acquireDuration; d > 0 {
		observability.DBPoolAcquireDuration.Add(d.Seconds())
	}
	return cur
}
