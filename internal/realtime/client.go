package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

const (
	defaultReconnectDelay = 3 * time.Second
	// defaultReadTimeout matches the gateway's default pong wait; the
	// gateway pings well inside it.
	defaultReadTimeout = 60 * time.Second
	pongWriteWait      = 5 * time.Second
)

// Sink receives decoded board events and connection state changes.
type Sink interface {
	ApplyEvent(event board.Event)
	SetConnected(connected bool)
}

// ClientOptions configures a realtime client.
type ClientOptions struct {
	URL            string
	Token          string
	ReconnectDelay time.Duration
	// ReadTimeout is how long the connection may stay silent, pings
	// included, before it is treated as lost.
	ReadTimeout time.Duration
	Dialer         *websocket.Dialer
	Sink           Sink
	Logger         *logger.Logger
}

// Client keeps one WebSocket to the gateway open, reconnecting after a fixed
// delay. Events missed while disconnected are not replayed.
type Client struct {
	url         string
	token       string
	delay       time.Duration
	readTimeout time.Duration
	dialer      *websocket.Dialer
	sink        Sink
	logg        *logger.Logger
}

// ClientOptionsFromConfig fills the timing options from the realtime
// settings shared with the gateway.
func ClientOptionsFromConfig(cfg config.RealtimeConfig) ClientOptions {
	return ClientOptions{
		ReconnectDelay: cfg.ReconnectDelay,
		ReadTimeout:    cfg.PongWait,
	}
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "realtime url is required")
	}
	if opts.Sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "realtime sink is required")
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		url:         opts.URL,
		token:       opts.Token,
		delay:       delay,
		readTimeout: readTimeout,
		dialer:      dialer,
		sink:        opts.Sink,
		logg:        opts.Logger.Named("realtime-client"),
	}, nil
}

// Run connects and dispatches events until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.logg.Warn(c.logg.WithError(ctx, err), "realtime connection lost")
		}
		if ctx.Err() != nil {
			return nil
		}

		timer := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection from dial to close.
func (c *Client) session(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.sink.SetConnected(false)
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	// Any frame, the gateway's pings included, proves the peer is alive.
	// A silent peer trips the deadline and the session ends.
	if err := c.extendDeadline(conn); err != nil {
		return err
	}
	conn.SetPingHandler(func(appData string) error {
		if err := c.extendDeadline(conn); err != nil {
			return err
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(pongWriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.sink.SetConnected(true)
	defer c.sink.SetConnected(false)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.extendDeadline(conn); err != nil {
			return err
		}
		event, ok := decodeMessage(data)
		if !ok {
			continue
		}
		c.sink.ApplyEvent(event)
	}
}

func (c *Client) extendDeadline(conn *websocket.Conn) error {
	return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
}

// decodeMessage accepts only well formed work board envelopes.
func decodeMessage(data []byte) (board.Event, bool) {
	var envelope board.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return board.Event{}, false
	}
	if envelope.Type != board.EnvelopeType {
		return board.Event{}, false
	}
	if err := envelope.Data.Validate(); err != nil {
		return board.Event{}, false
	}
	return envelope.Data, true
}
