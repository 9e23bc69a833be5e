package main

import (
	"context"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/repository/history"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/monitoring"
)

const (
	journalTimeout   = 5 * time.Second
	journalQueueSize = 16
)

// rideMetrics reports ride lifecycle events to New Relic
func rideMetrics(nr *monitoring.NewRelicApp) session.Listener {
	return func(evt session.Event) {
		switch evt.Type {
		case session.EventStarted:
			nr.RecordRideStarted(evt.Session.ID.String(), evt.Session.Bike.ID.String())
		case session.EventEnded:
			c := evt.Completion
			nr.RecordRideCompleted(
				c.Session.ID.String(),
				c.Session.Bike.ID.String(),
				c.Session.TotalDistance,
				c.EndedAt.Sub(c.Session.InUseSince()),
			)
		}
	}
}

// journalWriter records completed rides in the journal off the session
// store's event path, so a slow database never delays ending a ride. A failed
// write is logged and otherwise ignored.
type journalWriter struct {
	repo  history.Repository
	log   *logger.Logger
	queue chan history.Record
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func newJournalWriter(repo history.Repository, log *logger.Logger, size int) *journalWriter {
	if size <= 0 {
		size = journalQueueSize
	}
	return &journalWriter{
		repo:  repo,
		log:   log,
		queue: make(chan history.Record, size),
		done:  make(chan struct{}),
	}
}

// HandleSessionEvent is a session store listener. It never blocks; when the
// queue is full the record is dropped.
func (w *journalWriter) HandleSessionEvent(evt session.Event) {
	if evt.Type != session.EventEnded || evt.Completion == nil {
		return
	}
	c := evt.Completion
	rec := history.NewRecord(c.Session, c.DrivenDistance, c.FinalLocation, c.EndedAt)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- rec:
	default:
		w.log.ForRide(rec.SessionID.String(), rec.BikeID).
			Warn("Journal queue full, dropping completed ride")
	}
}

// Run writes queued records until Close is called
func (w *journalWriter) Run() {
	defer close(w.done)
	for rec := range w.queue {
		w.write(rec)
	}
}

func (w *journalWriter) write(rec history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := w.repo.Record(ctx, rec); err != nil {
		w.log.ForRide(rec.SessionID.String(), rec.BikeID).
			Error("Failed to journal completed ride", logger.Err(err))
	}
}

// Close stops accepting records and waits for the queued ones to be written
func (w *journalWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}
