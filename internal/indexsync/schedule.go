package indexsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type reindexStarter interface {
	Start(ctx context.Context) error
}

// Schedule starts background reindex runs on a cron spec, so documents
// missed by the write hook converge without operator action. A tick that
// finds a run in progress is skipped.
type Schedule struct {
	cron    *cron.Cron
	starter reindexStarter
	logger  *slog.Logger
}

// NewSchedule parses spec in the standard five-field form or a descriptor
// such as "@every 6h". Times are evaluated in UTC.
func NewSchedule(spec string, starter reindexStarter, logger *slog.Logger) (*Schedule, error) {
	s := &Schedule{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		starter: starter,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse reindex schedule %q: %w", spec, err)
	}
	return s, nil
}

// Next returns when the next run is due. It is zero until Start is called.
func (s *Schedule) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Schedule) tick() {
	err := s.starter.Start(context.Background())
	switch {
	case err == nil:
		s.logger.Info("scheduled reindex started")
	case IsLocked(err):
		s.logger.Info("scheduled reindex skipped, a run is already in progress")
	default:
		s.logger.Warn("scheduled reindex not started", slog.String("error", err.Error()))
	}
}

func (s *Schedule) Start() {
	s.cron.Start()
	s.logger.Info("reindex schedule active", slog.Time("next_run", s.Next()))
}

// Stop prevents further ticks and waits for a tick in progress to return,
// or for ctx to end. Runs already handed to the reindexer are not waited on.
func (s *Schedule) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
