package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

var (
	ErrNotConnected      = errors.New("pubsub: client not connected")
	errProjectIDRequired = errors.New("pubsub: gcp project id is required")
	errTopicRequired     = errors.New("pubsub: orders topic is required")
)

// MissingResourceError reports a topic or subscription that the project does
// not have. The relay refuses to start rather than create it.
type MissingResourceError struct {
	Kind string
	Name string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("pubsub: %s %s does not exist", e.Kind, e.Name)
}

// Client owns the Pub/Sub connection used to fan order events out.
type Client struct {
	api          *gcppubsub.Client
	project      string
	topic        string
	subscription string
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errTopicRequired
	}

	api, err := gcppubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("pubsub: dial: %w", err)
	}
	c := &Client{
		api:          api,
		project:      project,
		topic:        resourceName(project, "topics", cfg.OrdersTopic),
		subscription: resourceName(project, "subscriptions", cfg.OrdersSubscription),
	}
	if err := c.verify(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.topic), "pubsub ready")
	}
	return c, nil
}

// verify checks the orders topic and, when configured, its subscription.
func (c *Client) verify(ctx context.Context) error {
	_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if err := lookupError("topic", c.topic, err); err != nil {
		return err
	}
	if c.subscription == "" {
		return nil
	}
	_, err = c.api.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
	return lookupError("subscription", c.subscription, err)
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return &MissingResourceError{Kind: kind, Name: name}
	default:
		return fmt.Errorf("pubsub: look up %s %s: %w", kind, name, err)
	}
}

// Publisher returns a batching publisher for topic, which may be a short id
// or a full resource name. Callers must Stop it.
func (c *Client) Publisher(topic string) *gcppubsub.Publisher {
	if c == nil || c.api == nil {
		return nil
	}
	name := resourceName(c.project, "topics", topic)
	if name == "" {
		return nil
	}
	return c.api.Publisher(name)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return ErrNotConnected
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}

func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/" + kind + "/" + name
}
