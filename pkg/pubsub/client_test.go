package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/angelmondragon/workboard-backend/pkg/config"
)

const testProject = "workboard-test"

func dial(t *testing.T, srv *pstest.Server) option.ClientOption {
	t.Helper()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial pstest: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return option.WithGRPCConn(conn)
}

func newServer(t *testing.T) *pstest.Server {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func createTopic(t *testing.T, srv *pstest.Server, id string) string {
	t.Helper()
	admin, err := pubsub.NewClient(context.Background(), testProject, dial(t, srv))
	if err != nil {
		t.Fatalf("admin client: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })

	name := resourceName(testProject, "topics", id)
	if _, err := admin.TopicAdminClient.CreateTopic(context.Background(), &pubsubpb.Topic{Name: name}); err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return name
}

func pubsubConfig(create bool) config.PubSubConfig {
	return config.PubSubConfig{
		Topic:              "workboard-events",
		Subscription:       "workboard-api-1",
		CreateSubscription: create,
		SubscriptionTTL:    24 * time.Hour,
		AckDeadline:        10 * time.Second,
	}
}

func TestResourceName(t *testing.T) {
	cases := []struct {
		kind, in, want string
	}{
		{"subscriptions", "board-api-1", "projects/shop-prod/subscriptions/board-api-1"},
		{"subscriptions", "projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{"subscriptions", "  ", ""},
		{"topics", " workboard-events ", "projects/shop-prod/topics/workboard-events"},
		{"topics", "projects/other/topics/y", "projects/other/topics/y"},
		{"topics", "projects/other/subscriptions/y", "projects/shop-prod/topics/projects/other/subscriptions/y"},
	}
	for _, tc := range cases {
		if got := resourceName("shop-prod", tc.kind, tc.in); got != tc.want {
			t.Errorf("%s %q: got %q want %q", tc.kind, tc.in, got, tc.want)
		}
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, pubsubConfig(false), nil); err != errProjectIDRequired {
		t.Fatalf("expected project error, got %v", err)
	}
	cfg := pubsubConfig(false)
	cfg.Topic = ""
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: testProject}, cfg, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
	cfg = pubsubConfig(false)
	cfg.Subscription = " "
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: testProject}, cfg, nil); err != errSubscriptionRequired {
		t.Fatalf("expected subscription error, got %v", err)
	}
}

func TestNewClientRequiresTopic(t *testing.T) {
	srv := newServer(t)
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: testProject}, pubsubConfig(true), nil, dial(t, srv))
	if err == nil {
		t.Fatal("expected missing topic error")
	}
}

func TestNewClientRequiresSubscriptionUnlessCreating(t *testing.T) {
	srv := newServer(t)
	createTopic(t, srv, "workboard-events")
	gcp := config.GCPConfig{ProjectID: testProject}

	if _, err := NewClient(context.Background(), gcp, pubsubConfig(false), nil, dial(t, srv)); err == nil {
		t.Fatal("expected missing subscription error")
	}

	client, err := NewClient(context.Background(), gcp, pubsubConfig(true), nil, dial(t, srv))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if client.BoardPublisher() == nil || client.BoardSubscription() == nil {
		t.Fatal("expected board handles")
	}

	again, err := NewClient(context.Background(), gcp, pubsubConfig(false), nil, dial(t, srv))
	if err != nil {
		t.Fatalf("existing subscription should be accepted: %v", err)
	}
	_ = again.Close()
}

func TestNewClientRejectsSubscriptionOnOtherTopic(t *testing.T) {
	srv := newServer(t)
	createTopic(t, srv, "workboard-events")
	other := createTopic(t, srv, "billing-events")

	admin, err := pubsub.NewClient(context.Background(), testProject, dial(t, srv))
	if err != nil {
		t.Fatalf("admin client: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })
	if _, err := admin.SubscriptionAdminClient.CreateSubscription(context.Background(), &pubsubpb.Subscription{
		Name:  resourceName(testProject, "subscriptions", "workboard-api-1"),
		Topic: other,
	}); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: testProject}, pubsubConfig(false), nil, dial(t, srv)); err == nil {
		t.Fatal("expected topic mismatch error")
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.BoardPublisher() != nil || c.BoardSubscription() != nil {
		t.Fatal("nil client should return nil handles")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("nil client ping should fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
