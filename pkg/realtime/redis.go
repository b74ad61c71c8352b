// Package realtime fans committed org chart changes out to Redis pub/sub so
// connected clients can refresh their view.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher is the slice of *redis.Client the broadcaster needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Broadcaster struct {
	rdb    Publisher
	prefix string
	log    *logrus.Entry
}

func NewBroadcaster(rdb Publisher, prefix string, log *logrus.Logger) *Broadcaster {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "orgchart"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broadcaster{rdb: rdb, prefix: prefix, log: log.WithField("component", "realtime")}
}

// Channel returns the pub/sub channel of one organization.
func (b *Broadcaster) Channel(orgID uuid.UUID) string {
	return b.prefix + ":" + orgID.String()
}

// Broadcast publishes payload as JSON on the organization's channel.
func (b *Broadcaster) Broadcast(ctx context.Context, orgID uuid.UUID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	receivers, err := b.rdb.Publish(ctx, b.Channel(orgID), raw).Result()
	if err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	b.log.WithFields(logrus.Fields{
		"channel":   b.Channel(orgID),
		"receivers": receivers,
	}).Debug("change broadcast")
	return nil
}

// NewClient connects to url (redis://host:port/db) and verifies it with PING.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("realtime: redis ping: %w", err)
	}
	return rdb, nil
}
