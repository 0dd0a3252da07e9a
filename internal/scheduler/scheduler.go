package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/snapshot"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// digestTop is how many movers the post-scan alert lists.
const digestTop = 5

// Sender delivers a Telegram-formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler drives the scanner on cron and answers chat commands. Every job
// runs under Recover and SkipIfStillRunning: a panicking cycle is logged and
// the next tick retries; an overrunning cycle is never doubled up.
type Scheduler struct {
	Cron    *cron.Cron
	Scanner *Scanner
	Service *snapshot.Service
	Sender  Sender

	// DigestMinChange is the |change %| the top mover must reach for a
	// post-scan alert. Zero disables alerts.
	DigestMinChange float64

	ctx     context.Context
	chain   cron.Chain
	scanJob cron.Job
	log     zerolog.Logger
}

// NewScheduler creates a new Scheduler. sender may be nil.
func NewScheduler(ctx context.Context, scanner *Scanner, svc *snapshot.Service, sender Sender, logger zerolog.Logger) *Scheduler {
	lg := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: lg}
	s := &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(model.ExchangeLocation()),
			cron.WithLogger(cl),
		),
		Scanner: scanner,
		Service: svc,
		Sender:  sender,
		ctx:     ctx,
		chain:   cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		log:     lg,
	}
	s.scanJob = s.chain.Then(cron.FuncJob(s.scanTask))
	return s
}

// RegisterAll registers the movers scan every interval and, when universeCron
// is set, a scheduled universe rebuild.
func (s *Scheduler) RegisterAll(interval time.Duration, universeCron string) error {
	if interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", interval)
	}
	if _, err := s.Cron.AddJob("@every "+interval.String(), s.scanJob); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if universeCron != "" {
		if _, err := s.Cron.AddJob(universeCron, s.chain.Then(cron.FuncJob(s.universeTask))); err != nil {
			return fmt.Errorf("register universe task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler and kicks off a first scan immediately.
func (s *Scheduler) Start() {
	s.Cron.Start()
	go s.scanJob.Run()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunScanNow executes one scan cycle synchronously.
func (s *Scheduler) RunScanNow() {
	s.scanJob.Run()
}

func (s *Scheduler) scanTask() {
	movers := s.Scanner.ScanOnce(s.ctx)
	if s.Sender == nil || s.DigestMinChange <= 0 {
		return
	}
	if msg := notifier.FormatDigest(movers, s.Scanner.LastScan(), s.DigestMinChange, digestTop); msg != "" {
		if err := s.Sender.SendWithRetry(s.ctx, msg, 3); err != nil {
			s.log.Error().Err(err).Msg("send movers digest")
		}
	}
}

func (s *Scheduler) universeTask() {
	s.Scanner.BuildUniverse(s.ctx)
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}

	switch strings.ToLower(fields[0]) {
	case "/quote", "/q":
		if len(fields) < 2 {
			return "Usage: /quote SYMBOL [strategy] [mode]"
		}
		req := snapshot.Request{Symbol: fields[1]}
		if len(fields) > 2 {
			req.Strategy = fields[2]
		}
		if len(fields) > 3 {
			req.Mode = fields[3]
		}
		snap, err := s.Service.Analyze(s.ctx, req)
		switch {
		case errors.Is(err, model.ErrInvalidSymbol):
			return fmt.Sprintf("Invalid symbol: %q", fields[1])
		case errors.Is(err, model.ErrNotConfigured):
			return "Market data is not configured."
		case err != nil:
			return "Request failed."
		}
		return notifier.FormatSnapshot(snap)
	case "/movers":
		return notifier.FormatMovers(s.Scanner.Movers(), s.Scanner.LastScan())
	default:
		return notifier.FormatHelp()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
