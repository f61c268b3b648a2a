// Package kafka runs the membership event consumer that keeps user projections in line with
// organization member lists.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	membership "github.com/ortelius/tenancy-backend/events/modules/membership"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

// Options selects the brokers, topic and credentials.
type Options struct {
	Brokers  []string
	Topic    string
	GroupID  string
	Username string
	Password string
}

func (o Options) secure() bool {
	return o.Username != "" && o.Password != ""
}

// NewDialer returns a dialer that uses SASL/PLAIN over TLS when credentials are set.
func NewDialer(opts Options) *kafka.Dialer {
	if opts.secure() {
		return &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: plain.Mechanism{Username: opts.Username, Password: opts.Password},
			TLS:           &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	// local development: no SASL/TLS
	return &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
}

// NewTransport returns the writer-side equivalent of NewDialer, or nil for the default transport.
func NewTransport(opts Options) *kafka.Transport {
	if !opts.secure() {
		return nil
	}
	return &kafka.Transport{
		SASL: plain.Mechanism{Username: opts.Username, Password: opts.Password},
		TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// retryDelay is the pause between failed broker dials or reads.
const retryDelay = 2 * time.Second

// waitRetry sleeps for d and reports false if ctx ends first.
func waitRetry(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// RunEventProcessor checks broker reachability, then consumes membership events in the
// background until ctx is done.
func RunEventProcessor(ctx context.Context, opts Options, reconciler membership.Reconciler, logger *zap.Logger) error {
	if len(opts.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	dialer := NewDialer(opts)

	var err error
	for i := 1; i <= 3; i++ {
		logger.Info("Kafka connection attempt", zap.Int("attempt", i), zap.String("broker", opts.Brokers[0]))
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", opts.Brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 && !waitRetry(ctx, retryDelay) {
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  opts.Brokers,
		GroupID:  opts.GroupID,
		Topic:    opts.Topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()
		logger.Info("Kafka event processor started", zap.String("topic", opts.Topic))

		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Failed to read membership event", zap.Error(err))
				if !waitRetry(ctx, retryDelay) {
					return
				}
				continue
			}
			if err := membership.HandleMembershipEvent(ctx, msg.Value, reconciler, logger); err != nil {
				logger.Error("Failed to process membership event",
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}()

	return nil
}
