package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spesetools/internal/amqp"
	"spesetools/internal/log"
)

// EventSource delivers expense events until ctx is done.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// EventStats counts processed events per type.
type EventStats struct {
	Created int64
	Updated int64
	Deleted int64
}

func (s EventStats) Total() int64 {
	return s.Created + s.Updated + s.Deleted
}

// EventProcessor consumes expense events in the background and records
// them in the log.
type EventProcessor struct {
	source EventSource
	logger *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	runErr  error
	stats   EventStats
}

func NewEventProcessor(source EventSource, logger *log.Logger) *EventProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventProcessor{
		source: source,
		logger: logger.WithComponent(log.ComponentEvents),
	}
}

// Start begins consuming. Returns an error if already running.
func (p *EventProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("event processor is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	p.runErr = nil

	go p.run(ctx, p.doneCh)

	p.logger.InfoContext(ctx, "Event processor started", log.FieldOperation, log.OpStartup)
	return nil
}

func (p *EventProcessor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := p.source.ConsumeEvents(ctx, p.Handle)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	p.mu.Lock()
	p.running = false
	p.runErr = err
	p.mu.Unlock()

	if err != nil {
		p.logger.ErrorContext(ctx, "Event consumption stopped", log.FieldError, err)
	}
}

// Stop cancels consumption and waits for it to finish or ctx to expire.
func (p *EventProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.doneCh
	p.mu.Unlock()

	cancel()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Event processor stopped gracefully", log.FieldOperation, log.OpShutdown)
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Event processor stop timed out")
		return ctx.Err()
	}
}

// Run starts consuming and blocks until ctx is done or consumption fails on
// its own. On shutdown it waits at most stopTimeout for the source to return.
func (p *EventProcessor) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	select {
	case <-p.Done():
		return p.Wait()
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop event processor: %w", err)
	}
	return p.Wait()
}

// Done is closed when the current consumption ends. It is nil before Start.
func (p *EventProcessor) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

// Wait blocks until consumption ends and returns its error.
func (p *EventProcessor) Wait() error {
	p.mu.Lock()
	done := p.doneCh
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runErr
}

func (p *EventProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *EventProcessor) Stats() EventStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Handle records a single event.
func (p *EventProcessor) Handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	switch ev.Type {
	case amqp.EventExpenseCreated:
		p.stats.Created++
	case amqp.EventExpenseUpdated:
		p.stats.Updated++
	case amqp.EventExpenseDeleted:
		p.stats.Deleted++
	default:
		p.mu.Unlock()
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Expense event received",
		log.FieldEventID, ev.ID,
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ExpenseID,
		"amount", ev.Expense.Amount,
		log.FieldExpenseDate, ev.Expense.ExpenseDate,
		log.FieldPayment, ev.Expense.PaymentMethod)
	return nil
}
