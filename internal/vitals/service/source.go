package service

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoMessage signals an empty poll cycle: nothing arrived within the
// timeout. The consumer treats it as a normal beat of the loop.
var ErrNoMessage = errors.New("no message")

// MessageSource yields raw payloads from the reading bus with a bounded
// wait, so a stop signal is observed within one poll interval.
type MessageSource interface {
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

// redisSource subscribes to a single Pub/Sub channel. The bus is
// fire-and-forget: messages published while nobody is subscribed are lost,
// and no offset tracking or replay exists.
type redisSource struct {
	pubsub *redis.PubSub
}

// NewRedisSource subscribes to the named channel on the given client.
func NewRedisSource(client *redis.Client, channel string) MessageSource {
	return &redisSource{pubsub: client.Subscribe(context.Background(), channel)}
}

func (s *redisSource) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	msg, err := s.pubsub.ReceiveTimeout(ctx, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrNoMessage
		}
		return nil, err
	}
	switch m := msg.(type) {
	case *redis.Message:
		return []byte(m.Payload), nil
	default:
		// subscription confirmations, pongs
		return nil, ErrNoMessage
	}
}

func (s *redisSource) Close() error {
	return s.pubsub.Close()
}
