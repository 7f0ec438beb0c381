package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/incognish/incognish/internal/app/domain"
)

const (
	// DefaultStreamIdleTimeout bounds how long Stream waits for the next event.
	DefaultStreamIdleTimeout = 120 * time.Second

	noRunMessage   = "No run in progress."
	timeoutMessage = "Timed out waiting for runner."
)

// RunFunc executes one run. Orchestrator.RunBrokers satisfies it.
type RunFunc func(ctx context.Context, brokerIDs []string, onLog func(string)) (domain.RunSummary, error)

// RunSession owns the single in-flight run and its event queue.
//
// Events are not fanned out: concurrent Stream callers compete for the same
// queue and each event reaches exactly one of them.
type RunSession struct {
	run         RunFunc
	idleTimeout time.Duration
	logger      *slog.Logger

	active atomic.Bool
	wg     sync.WaitGroup

	mu    sync.Mutex
	queue *eventQueue

	baseCtx context.Context
}

// NewRunSession constructs a session. Runs inherit values from base but are
// not cancelled with it; a zero idleTimeout uses DefaultStreamIdleTimeout.
func NewRunSession(base context.Context, run RunFunc, idleTimeout time.Duration, logger *slog.Logger) *RunSession {
	if idleTimeout <= 0 {
		idleTimeout = DefaultStreamIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if base == nil {
		base = context.Background()
	}
	return &RunSession{run: run, idleTimeout: idleTimeout, logger: logger, baseCtx: context.WithoutCancel(base)}
}

// Start launches a run in the background. It fails with
// domain.ErrRunInProgress while another run is active.
func (s *RunSession) Start(brokerIDs []string) error {
	s.mu.Lock()
	if !s.active.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return domain.ErrRunInProgress
	}
	queue := newEventQueue()
	s.queue = queue
	s.mu.Unlock()

	ids := append([]string(nil), brokerIDs...)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(queue, ids)
	}()
	return nil
}

func (s *RunSession) execute(queue *eventQueue, brokerIDs []string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("run panicked", "panic", recovered)
			queue.push(domain.RunEvent{Kind: domain.RunEventDone, Message: "FATAL ERROR: run aborted"})
		}
		s.active.Store(false)
		queue.push(domain.RunEvent{Kind: domain.RunEventEnd})
	}()

	summary, err := s.run(s.baseCtx, brokerIDs, func(line string) {
		queue.push(domain.RunEvent{Kind: domain.RunEventMessage, Message: line})
	})
	if err != nil {
		s.logger.Error("run failed", "error", err)
		queue.push(domain.RunEvent{Kind: domain.RunEventDone, Message: "FATAL ERROR: " + err.Error()})
		return
	}
	queue.push(domain.RunEvent{Kind: domain.RunEventDone, Message: separator, Summary: &summary})
}

// InProgress reports whether a run is active. It never blocks.
func (s *RunSession) InProgress() bool {
	return s.active.Load()
}

// Stream passes queued events to emit until the end of the run. It returns
// when the run ends, when no event arrives within the idle timeout, when ctx
// is done, or when emit fails. The end event itself is not emitted.
func (s *RunSession) Stream(ctx context.Context, emit func(domain.RunEvent) error) error {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()

	if queue == nil {
		return emit(domain.RunEvent{Kind: domain.RunEventMessage, Message: noRunMessage})
	}

	for {
		event, err := queue.pop(ctx, s.idleTimeout)
		if errors.Is(err, errIdle) {
			return emit(domain.RunEvent{Kind: domain.RunEventMessage, Message: timeoutMessage})
		}
		if err != nil {
			return err
		}
		if event.Kind == domain.RunEventEnd {
			return nil
		}
		if err := emit(event); err != nil {
			return err
		}
	}
}

// Wait blocks until the in-flight run, if any, has finished.
func (s *RunSession) Wait() {
	s.wg.Wait()
}

var errIdle = errors.New("event queue idle")

// eventQueue is an unbounded FIFO with a wake-up signal for one waiter.
type eventQueue struct {
	mu     sync.Mutex
	events []domain.RunEvent
	ready  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(event domain.RunEvent) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop(ctx context.Context, idle time.Duration) (domain.RunEvent, error) {
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			event := q.events[0]
			q.events[0] = domain.RunEvent{}
			q.events = q.events[1:]
			more := len(q.events) > 0
			q.mu.Unlock()
			if more {
				// Pass the wake-up on to a competing reader.
				select {
				case q.ready <- struct{}{}:
				default:
				}
			}
			return event, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.RunEvent{}, ctx.Err()
		case <-timer.C:
			return domain.RunEvent{}, errIdle
		case <-q.ready:
		}
	}
}
