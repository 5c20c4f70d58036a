package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// peerServer upgrades every request and hands the socket to serve.
func peerServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func runClient(t *testing.T, opts ClientOptions) {
	t.Helper()
	client, err := NewClient(opts)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestClientDropsSilentPeer(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	url := peerServer(t, func(*websocket.Conn) { <-release })

	sink := &recordingSink{}
	runClient(t, ClientOptions{URL: url, Sink: sink, ReconnectDelay: time.Hour, ReadTimeout: 100 * time.Millisecond})

	require.Eventually(t, func() bool {
		_, states := sink.snapshot()
		return len(states) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	_, states := sink.snapshot()
	assert.Equal(t, []bool{true, false}, states[:2])
}

func TestClientStaysConnectedWhilePinged(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	pongs := make(chan struct{}, 64)
	url := peerServer(t, func(conn *websocket.Conn) {
		conn.SetPongHandler(func(string) error {
			select {
			case pongs <- struct{}{}:
			default:
			}
			return nil
		})
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-release:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					return
				}
			}
		}
	})

	sink := &recordingSink{}
	runClient(t, ClientOptions{URL: url, Sink: sink, ReconnectDelay: time.Hour, ReadTimeout: 150 * time.Millisecond})

	require.Eventually(t, sink.isConnected, time.Second, 5*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	_, states := sink.snapshot()
	assert.Equal(t, []bool{true}, states, "pings keep the connection alive")
	assert.NotEmpty(t, pongs, "pings are answered")
}

func TestClientOptionsFromConfig(t *testing.T) {
	opts := ClientOptionsFromConfig(config.RealtimeConfig{PongWait: 45 * time.Second, ReconnectDelay: 2 * time.Second})
	assert.Equal(t, 45*time.Second, opts.ReadTimeout)
	assert.Equal(t, 2*time.Second, opts.ReconnectDelay)

	opts.URL = "ws://localhost"
	opts.Sink = &recordingSink{}
	client, err := NewClient(opts)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, client.readTimeout)

	client, err = NewClient(ClientOptions{URL: "ws://localhost", Sink: &recordingSink{}})
	require.NoError(t, err)
	assert.Equal(t, defaultReadTimeout, client.readTimeout)
}

type unusedMutations struct{}

func (unusedMutations) CreateAssignment(context.Context, board.CreateAssignmentRequest) (board.AssignmentView, error) {
	return board.AssignmentView{}, nil
}

func (unusedMutations) MoveAssignment(context.Context, board.MoveAssignmentRequest) (board.AssignmentView, error) {
	return board.AssignmentView{}, nil
}

func (unusedMutations) RemoveAssignment(context.Context, uuid.UUID) error {
	return nil
}

func TestSecondClientSeesAssignmentWithoutRefetch(t *testing.T) {
	g := newGateway(t, nil)
	orgID, techID, jobID := uuid.New(), uuid.New(), uuid.New()

	initial := boardstate.New(orgID)
	initial = boardstate.SetTechnicians(initial, []board.TechnicianView{{ID: techID, OrganizationID: orgID, Name: "Alice", Color: "#3b82f6"}})
	initial = boardstate.SetUnassigned(initial, board.UnassignedJobs{
		ServiceRecords: []board.ServiceRecordSummary{{ID: jobID, Title: "J1", Status: enums.ServiceRecordStatusPending}},
	})
	engine, err := boardstate.NewEngine(boardstate.EngineParams{
		Store:  boardstate.NewStore(initial),
		Client: unusedMutations{},
	})
	require.NoError(t, err)

	runClient(t, ClientOptions{
		URL:            g.wsURL,
		Token:          mintToken(t, orgID, enums.MemberRoleViewer),
		ReconnectDelay: 20 * time.Millisecond,
		Sink:           engine,
	})
	require.Eventually(t, func() bool {
		return g.hub.Connections(orgID) == 1 && engine.Store().Snapshot().Connected
	}, time.Second, 5*time.Millisecond)

	g.publish(t, board.AssignmentCreated(board.AssignmentView{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		Date:            types.MustParseDate("2026-01-15"),
		TechnicianID:    techID,
		ServiceRecordID: &jobID,
		ServiceRecord:   &board.ServiceRecordSummary{ID: jobID, Title: "J1", Status: enums.ServiceRecordStatusPending},
	}))

	require.Eventually(t, func() bool {
		snap := engine.Store().Snapshot()
		return len(snap.Assignments) == 1 && len(snap.UnassignedServiceRecords) == 0
	}, time.Second, 5*time.Millisecond)
	snap := engine.Store().Snapshot()
	assert.Equal(t, techID, snap.Assignments[0].TechnicianID)
	assert.Equal(t, "2026-01-15", snap.Assignments[0].Date.String())
}
