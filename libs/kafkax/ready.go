package kafkax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReadyCheck succeeds as soon as one configured broker accepts a connection and returns
// cluster metadata.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		addrs := SplitBrokers(brokers)
		if len(addrs) == 0 {
			return errors.New("kafka brokers not configured")
		}

		dialer := &kafka.Dialer{Timeout: 2 * time.Second}
		var lastErr error
		for _, addr := range addrs {
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			_, err = conn.Brokers()
			_ = conn.Close()
			if err == nil {
				return nil
			}
			lastErr = err
		}
		return fmt.Errorf("no kafka broker reachable: %w", lastErr)
	}
}
