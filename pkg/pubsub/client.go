// Package pubsub wraps the Pub/Sub v2 client used by the gcp notification
// bus backend.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errTopicRequired        = errors.New("pubsub topic is required")
	errSubscriptionRequired = errors.New("pubsub subscription name is required")
)

// Client holds the board topic and this instance's subscription, both as
// full resource names.
type Client struct {
	client       *pubsub.Client
	topic        string
	subscription string
}

// NewClient connects to Pub/Sub and checks that the board topic exists and
// that this instance's subscription is attached to it. When
// cfg.CreateSubscription is set a missing subscription is created. opts are
// passed to the underlying client.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := resourceName(project, "topics", cfg.Topic)
	if topic == "" {
		return nil, errTopicRequired
	}
	subscription := resourceName(project, "subscriptions", cfg.Subscription)
	if subscription == "" {
		return nil, errSubscriptionRequired
	}

	psClient, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, topic: topic, subscription: subscription}

	if err := c.ensureTopic(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	created, err := c.ensureSubscription(ctx, cfg)
	if err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"topic":        topic,
			"subscription": subscription,
			"created":      created,
		})
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) ensureTopic(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("topic %q does not exist", c.topic)
	}
	if err != nil {
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

func (c *Client) ensureSubscription(ctx context.Context, cfg config.PubSubConfig) (bool, error) {
	sub, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
	switch {
	case err == nil:
		if sub.GetTopic() != c.topic {
			return false, fmt.Errorf("subscription %q is attached to %q, expected %q", c.subscription, sub.GetTopic(), c.topic)
		}
		return false, nil
	case status.Code(err) != codes.NotFound:
		return false, fmt.Errorf("checking subscription %q: %w", c.subscription, err)
	case !cfg.CreateSubscription:
		return false, fmt.Errorf("subscription %q does not exist", c.subscription)
	}

	req := &pubsubpb.Subscription{
		Name:               c.subscription,
		Topic:              c.topic,
		AckDeadlineSeconds: int32(cfg.AckDeadline / time.Second),
	}
	if cfg.SubscriptionTTL > 0 {
		req.ExpirationPolicy = &pubsubpb.ExpirationPolicy{Ttl: durationpb.New(cfg.SubscriptionTTL)}
	}
	_, err = c.client.SubscriptionAdminClient.CreateSubscription(ctx, req)
	if status.Code(err) == codes.AlreadyExists {
		// Another instance raced us to it.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating subscription %q: %w", c.subscription, err)
	}
	return true, nil
}

// BoardPublisher returns the publisher for the shared board topic.
func (c *Client) BoardPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Publisher(c.topic)
}

// BoardSubscription returns the subscriber for this instance's subscription.
func (c *Client) BoardSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Subscriber(c.subscription)
}

// Ping checks that the subscription is still reachable. Expired
// subscriptions surface here before the bus stops receiving.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if _, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription}); err != nil {
		return fmt.Errorf("pubsub subscription %q: %w", c.subscription, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an id into projects/<project>/<kind>/<id>. Full
// resource names of the same kind pass through.
func resourceName(project, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, n)
}
