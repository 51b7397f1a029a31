package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/usecase"
)

const GrantChannel = "curatorgate:grants"

type SignalService struct {
	rdb *redis.Client
}

// NewSignalService accepts a nil client, in which case events are dropped.
func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event domain.GrantEvent) error {
	if s.rdb == nil {
		return nil
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, GrantChannel, jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "failed to publish grant event")
	}

	return nil
}

// Realtime forwards grant events to output until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, output chan<- domain.GrantEvent) {
	if s.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := s.rdb.Subscribe(ctx, GrantChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event domain.GrantEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(
					ctx, "Failed to decode grant event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

var _ usecase.SignalPublisher = (*SignalService)(nil)
