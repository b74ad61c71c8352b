package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Cleaner periodically removes published messages older than the retention.
type Cleaner struct {
	store      Store
	opts       CleanerOptions
	tableLabel string
	m          *metrics
}

func NewCleaner(store Store, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if store == nil {
		return nil, invalidConfig("store is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	opts.setDefaults()
	return &Cleaner{
		store:      store,
		opts:       opts,
		tableLabel: TableLabel(table),
		m:          getMetrics(),
	}, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := c.CleanOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).WithField("table", c.tableLabel).Warn("outbox: cleaner tick failed")
		}
	}
}

func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	n, err := c.store.Purge(ctx, time.Now().Add(-c.opts.Retention))
	if err != nil {
		return 0, err
	}
	c.m.purgedTotal.WithLabelValues(c.tableLabel).Add(float64(n))
	return n, nil
}
