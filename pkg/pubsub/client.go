package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Client publishes outbox events and hands out the notification
// subscriber. Publishers are cached per topic for the client's lifetime.
type Client struct {
	api     *pubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient authenticates with inline JSON or a key file when configured,
// otherwise with application default credentials.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	var opts []option.ClientOption
	if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	} else if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	api, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", project), "pubsub.ready")
	}
	return &Client{api: api, project: project, cfg: cfg, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Send publishes one message and waits for the server ack.
func (c *Client) Send(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	pub, err := c.publisher(topic)
	if err != nil {
		return err
	}
	if _, err := pub.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	name := c.resource(kindTopic, topic)
	if c == nil || c.api == nil || name == "" {
		return nil, fmt.Errorf("topic %q not configured", topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.api.Publisher(name)
		c.publishers[name] = pub
	}
	return pub, nil
}

// NotificationSubscription is the subscriber cmd/notification-worker reads.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	name := c.resource(kindSubscription, c.cfg.NotificationSubscription)
	if c.api == nil || name == "" {
		return nil
	}
	return c.api.Subscriber(name)
}

func (c *Client) EnsureSubscription(ctx context.Context, name string) error {
	return c.exists(ctx, kindSubscription, name)
}

// Ping confirms both configured topics exist.
func (c *Client) Ping(ctx context.Context) error {
	for _, topic := range []string{c.cfg.OrdersTopic, c.cfg.NotificationTopic} {
		if err := c.exists(ctx, kindTopic, topic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exists(ctx context.Context, kind, name string) error {
	if c == nil || c.api == nil {
		return errNotInitialized
	}
	full := c.resource(kind, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", strings.TrimSuffix(kind, "s"), name)
	}

	var err error
	if kind == kindTopic {
		_, err = c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	} else {
		_, err = c.api.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	case err != nil:
		return fmt.Errorf("checking %s: %w", full, err)
	}
	return nil
}

// Close flushes and stops every cached publisher before closing the client.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.api.Close()
}

// resource expands a short id to projects/<p>/<kind>/<id>. Full resource
// names pass through unchanged.
func (c *Client) resource(kind, name string) string {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.project == "" {
		return ""
	}
	return "projects/" + c.project + "/" + kind + "/" + name
}
