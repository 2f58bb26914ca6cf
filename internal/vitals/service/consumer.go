package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ConsumerState tracks the consumer lifecycle:
// STOPPED -> RUNNING -> STOPPING -> STOPPED.
type ConsumerState int32

const (
	StateStopped ConsumerState = iota
	StateRunning
	StateStopping
)

func (s ConsumerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// MessageHandler processes one raw bus payload.
type MessageHandler interface {
	ProcessMessage(ctx context.Context, payload []byte) error
}

// Consumer owns the subscribe loop. It runs as a single long-lived
// goroutine, independent of the request-serving paths, and stops
// cooperatively: the poll is bounded so cancellation is observed within
// one interval, and a message already received is always processed to
// completion before the loop exits.
type Consumer struct {
	source  MessageSource
	handler MessageHandler
	poll    time.Duration

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewConsumer(source MessageSource, handler MessageHandler, poll time.Duration) *Consumer {
	if poll <= 0 {
		poll = time.Second
	}
	return &Consumer{source: source, handler: handler, poll: poll}
}

func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Start launches the consume loop. Returns an error if the consumer is not
// stopped.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return errors.New("consumer is not stopped")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(loopCtx)
	log.Info().Dur("poll_interval", c.poll).Msg("stream consumer started")
	return nil
}

// Stop signals the loop to exit and waits for the in-flight message, if
// any, to finish. Safe to call when already stopped.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.state.Store(int32(StateStopped))
	log.Info().Msg("stream consumer stopped")
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := c.source.Receive(ctx, c.poll)
		if errors.Is(err, ErrNoMessage) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("receive from reading channel failed")
			continue
		}

		// Finish the message in hand even if a stop arrives mid-processing.
		if err := c.handler.ProcessMessage(context.WithoutCancel(ctx), payload); err != nil {
			log.Error().Err(err).Msg("reading dropped")
		}
	}
}
