package publish

import (
	"context"
	"encoding/json"
	"sync"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	globalChannel         = "global"
	defaultChannelPrefix  = "execution"
	defaultRedisBufferLen = 1024
)

// RedisClient is the subset of the go-redis client used for publishing.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisConfig struct {
	ChannelPrefix string
	BufferSize    int
}

// Payload is the JSON body published on the Redis channel.
type Payload struct {
	TraderID schema.TraderID `json:"trader_id"`
	Event    json.RawMessage `json:"event"`
}

type redisMessage struct {
	channel string
	payload []byte
}

// RedisPublisher publishes events on trader scoped Redis pub/sub channels.
// Publish only encodes and enqueues; Run performs the network calls.
type RedisPublisher struct {
	client RedisClient
	prefix string

	mu     sync.RWMutex
	buffer chan redisMessage
	closed bool
}

func NewRedisPublisher(client RedisClient, cfg RedisConfig) *RedisPublisher {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = defaultChannelPrefix
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultRedisBufferLen
	}
	return &RedisPublisher{
		client: client,
		prefix: cfg.ChannelPrefix,
		buffer: make(chan redisMessage, cfg.BufferSize),
	}
}

// Channel returns the channel an event of the trader is published on.
func (p *RedisPublisher) Channel(traderID schema.TraderID) string {
	if traderID.IsEmpty() {
		return p.prefix + ":events:" + globalChannel
	}
	return p.prefix + ":events:" + traderID.String()
}

func (p *RedisPublisher) Publish(e schema.TraderEvent) error {
	event, err := schema.EncodeEvent(e.Event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	payload, err := sonic.ConfigStd.Marshal(Payload{TraderID: e.TraderID, Event: event})
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return exception.ErrPublishClosed
	}
	select {
	case p.buffer <- redisMessage{channel: p.Channel(e.TraderID), payload: payload}:
		return nil
	default:
		return errors.Wrapf(exception.ErrPublishBufferFull, "channel: %s", p.Channel(e.TraderID))
	}
}

// Run sends buffered events until ctx is done or Close was called and the
// buffer drained.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.buffer:
			if !ok {
				return
			}
			if err := p.client.Publish(ctx, msg.channel, msg.payload).Err(); err != nil {
				logs.Errorf("redis publish %s, err: %+v", msg.channel, err)
			}
		}
	}
}

// Close stops accepting events.
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.buffer)
	}
}

// DecodePayload parses a published message back into a trader event.
func DecodePayload(data []byte) (schema.TraderEvent, error) {
	var payload Payload
	if err := sonic.ConfigStd.Unmarshal(data, &payload); err != nil {
		return schema.TraderEvent{}, errors.Wrap(err, "unmarshal payload")
	}
	ev, err := schema.DecodeEvent(payload.Event)
	if err != nil {
		return schema.TraderEvent{}, err
	}
	return schema.TraderEvent{TraderID: payload.TraderID, Event: ev}, nil
}
