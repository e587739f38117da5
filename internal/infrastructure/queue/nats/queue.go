package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *zap.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *zap.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("adaptive-retrieval"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, wrapTransportError("nats connect", fmt.Errorf("connect nats: %w", err))
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Request sends data to the search subject and waits for the reply.
func (q *Queue) Request(ctx context.Context, data []byte) ([]byte, error) {
	reply, err := resilience.Call(ctx, q.executor, "nats.request", func(ctx context.Context) ([]byte, error) {
		msg, err := q.conn.RequestWithContext(ctx, q.subject, data)
		if err != nil {
			return nil, fmt.Errorf("nats request: %w", err)
		}
		return msg.Data, nil
	}, classifyNATSError)
	if err != nil {
		return nil, wrapTransportError("nats request", err)
	}
	return reply, nil
}

// Serve answers requests on the search subject until ctx is cancelled.
// Workers share a queue group so each request is handled once.
func (q *Queue) Serve(ctx context.Context, handler func(context.Context, []byte) ([]byte, error)) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "search-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		reply, err := handler(handlerCtx, msg.Data)
		if err != nil {
			q.logger.Error("search_handler_failed", zap.Error(err))
			return
		}
		if err := msg.Respond(reply); err != nil {
			q.logger.Warn("search_reply_failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
