package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/workboard-backend/api/responses"
	"github.com/angelmondragon/workboard-backend/internal/bus"
	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
	"github.com/angelmondragon/workboard-backend/pkg/metrics"
)

const (
	TokenQueryParam = "token"

	maxInboundMessage = 4096
	defaultSendBuffer = 32
)

type subscriber interface {
	Subscribe(ctx context.Context) (*bus.Subscription, error)
}

type authorizer interface {
	Authorize(ctx context.Context, principal auth.Principal, action enums.PermissionAction) error
}

// HubOptions groups dependencies for the realtime hub.
type HubOptions struct {
	Bus        subscriber
	Authorizer authorizer
	JWT        config.JWTConfig
	Config     config.RealtimeConfig
	Logger     *logger.Logger
	Metrics    *metrics.BoardMetrics
	// CheckOrigin overrides the allow list built from Config.AllowedOrigins.
	CheckOrigin func(r *http.Request) bool
}

// Hub upgrades authenticated requests to WebSockets and fans board events
// out to the connections of the event's organization.
type Hub struct {
	bus      subscriber
	authz    authorizer
	jwt      config.JWTConfig
	cfg      config.RealtimeConfig
	logg     *logger.Logger
	metrics  *metrics.BoardMetrics
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[uuid.UUID]map[*connection]struct{}
}

// NewHub builds a hub. Run must be started for events to flow.
func NewHub(opts HubOptions) (*Hub, error) {
	if opts.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bus is required")
	}
	if opts.Authorizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorizer is required")
	}
	if opts.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	cfg := withDefaults(opts.Config)
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = originChecker(cfg.AllowedOrigins)
	}
	return &Hub{
		bus:     opts.Bus,
		authz:   opts.Authorizer,
		jwt:     opts.JWT,
		cfg:     cfg,
		logg:    opts.Logger.Named("realtime"),
		metrics: opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		conns: make(map[uuid.UUID]map[*connection]struct{}),
	}, nil
}

func withDefaults(cfg config.RealtimeConfig) config.RealtimeConfig {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = 2 * cfg.PingInterval
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return cfg
}

// originChecker allows same-host requests, non-browser clients and any
// origin on the allow list. "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
			return true
		}
		return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
	}
}

// Run consumes the bus until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to board events")
	}
	defer sub.Close()
	defer h.closeAll()

	h.logg.Info(ctx, "realtime hub started")
	for {
		select {
		case <-ctx.Done():
			h.logg.Info(ctx, "realtime hub stopped")
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			h.Broadcast(event)
		case err, ok := <-sub.Errors():
			if ok && err != nil {
				h.logg.Warn(h.logg.WithError(ctx, err), "realtime bus message skipped")
			}
		}
	}
}

// Broadcast queues the event to every connection of its organization. A
// connection whose buffer is full misses the event.
func (h *Hub) Broadcast(event board.Event) {
	payload, err := json.Marshal(board.Wrap(event))
	if err != nil {
		h.logg.Error(context.Background(), "encode realtime message", err)
		return
	}
	label := string(event.Type)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[event.OrganizationID] {
		select {
		case c.send <- payload:
			h.metrics.IncDelivered(label)
		default:
			h.metrics.IncDropped(label)
			h.logg.Warn(c.logCtx, "realtime message dropped")
		}
	}
}

// Connections reports the open connections of an organization.
func (h *Hub) Connections(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[orgID])
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := h.authenticate(r)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	if err := h.authz.Authorize(ctx, principal, enums.ActionRead); err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logg.Warn(h.logg.WithError(ctx, err), "realtime upgrade failed")
		return
	}

	c := newConnection(h, ws, principal)
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) authenticate(r *http.Request) (auth.Principal, error) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
	}
	if token == "" {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token")
	}
	claims, err := auth.ParseAccessToken(h.jwt, token)
	if err != nil {
		return auth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	return claims.Principal(), nil
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	set, ok := h.conns[c.principal.OrganizationID]
	if !ok {
		set = make(map[*connection]struct{})
		h.conns[c.principal.OrganizationID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.logg.Info(c.logCtx, "realtime connection opened")
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	set, ok := h.conns[c.principal.OrganizationID]
	_, present := set[c]
	if ok && present {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.principal.OrganizationID)
		}
	}
	h.mu.Unlock()

	if present {
		h.metrics.ConnectionClosed()
		h.logg.Info(c.logCtx, "realtime connection closed")
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	all := make([]*connection, 0)
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.close()
	}
}

type connection struct {
	hub       *Hub
	ws        *websocket.Conn
	principal auth.Principal
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logCtx    context.Context
}

func newConnection(h *Hub, ws *websocket.Conn, principal auth.Principal) *connection {
	id := uuid.NewString()
	logCtx := h.logg.WithFields(context.Background(), map[string]any{
		"connection_id":   id,
		"organization_id": principal.OrganizationID.String(),
		"user_id":         principal.UserID.String(),
	})
	return &connection{
		hub:       h,
		ws:        ws,
		principal: principal,
		send:      make(chan []byte, h.cfg.SendBuffer),
		done:      make(chan struct{}),
		logCtx:    logCtx,
	}
}

// close is safe from both pumps and the hub.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(c.hub.cfg.WriteWait))
		_ = c.ws.Close()
	})
}

// readPump keeps the read deadline moving on pongs and discards inbound
// frames. It returns when the peer goes away.
func (c *connection) readPump() {
	defer c.close()
	c.ws.SetReadLimit(maxInboundMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.hub.logg.Warn(c.hub.logg.WithError(c.logCtx, err), "realtime read failed")
			}
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}
