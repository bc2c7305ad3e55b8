// Package notify publishes engine events to live dashboards over Redis
// pub/sub. Publishing is best effort; callers log failures and move on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rebootlabs/mastery/internal/logger"
)

// Event types.
const (
	EventWeakZoneDetected = "weakzone.detected"
	EventWeakZoneEnriched = "weakzone.enriched"
	EventRouteBuilt       = "route.built"
	EventSkillEarned      = "mastery.earned"
)

// Event is the envelope written to the channel.
type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event.
func NewEvent(typ string, at time.Time, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{Type: typ, At: at.UTC(), Data: raw}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Bus is a Publisher backed by a Redis channel.
type Bus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewBus connects to the Redis server at url (redis://host:port/db) and
// verifies the connection with a PING.
func NewBus(ctx context.Context, url, channel string, log *logger.Logger) (*Bus, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts, err := goredis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if channel == "" {
		channel = "mastery.events"
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{log: log.With("service", "notify.Bus"), rdb: rdb, channel: channel}, nil
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe delivers events from the channel to onEvent until ctx is
// cancelled. It returns once the subscription is confirmed.
func (b *Bus) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}
