package natsjetstream

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
)

type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	cfg    *Config
	logger *logger.Logger
}

func NewClient(cfg *Config, log *logger.Logger) (*Client, *apperrors.AppError) {
	log = log.With("component", "nats")

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "failed to connect to NATS")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to create JetStream context")
	}

	return &Client{
		conn:   nc,
		js:     js,
		cfg:    cfg,
		logger: log,
	}, nil
}

// EnsureStream creates the stream or updates its subjects.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects ...string) *apperrors.AppError {
	stream := jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	}

	if _, err := c.js.CreateOrUpdateStream(ctx, stream); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to create jetstream event stream")
	}

	c.logger.Info("Stream ready", "stream", name)
	return nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Drain()
	}
	return nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
