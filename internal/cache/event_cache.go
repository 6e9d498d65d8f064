package cache

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	"gorm.io/gorm"
)

const defaultEventTTL = 30 * time.Second

// EventLookup serves read-mostly event rows for the public tier listing and
// printable tickets. Misses are not cached so a newly published event shows
// up on the next request.
type EventLookup struct {
	repo   eventdomain.Repository
	events Cache[snowflake.ID, eventdomain.Event]
	ttl    time.Duration
}

func NewEventLookup(repo eventdomain.Repository, ttl time.Duration) *EventLookup {
	if ttl <= 0 {
		ttl = defaultEventTTL
	}
	return &EventLookup{
		repo:   repo,
		events: NewTTLCache[snowflake.ID, eventdomain.Event](),
		ttl:    ttl,
	}
}

func (l *EventLookup) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.Event, error) {
	if event, ok := l.events.Get(id); ok {
		return &event, nil
	}
	event, err := l.repo.FindByID(ctx, db, id)
	if err != nil || event == nil {
		return event, err
	}
	l.events.Set(id, *event, l.ttl)
	return event, nil
}

var _ eventdomain.Repository = (*EventLookup)(nil)
