package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes events over Redis pub/sub, one channel per table,
// so transport collaborators (WebSocket fanout, push notifications) can
// subscribe without touching the core.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Channel returns the pub/sub channel used for a table code.
func Channel(tableCode string) string {
	return fmt.Sprintf("table-%s", tableCode)
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error marshaling event: %v", err)
	}
	if err := p.client.Publish(ctx, Channel(ev.TableCode), data).Err(); err != nil {
		return fmt.Errorf("error publishing %s event for table %s: %v", ev.Type, ev.TableCode, err)
	}
	return nil
}
