package main

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type pubsubSource interface {
	Publisher(name string) *gcppubsub.Publisher
}

// publisherCache hands out one long-lived *gcppubsub.Publisher per topic so
// the client's internal batching is shared across cycles.
type publisherCache struct {
	source pubsubSource

	mu     sync.Mutex
	topics map[string]*gcppubsub.Publisher
}

func newPublisherCache(source pubsubSource) *publisherCache {
	return &publisherCache{source: source, topics: make(map[string]*gcppubsub.Publisher)}
}

func (c *publisherCache) lookup(topic string) topicPublisher {
	c.mu.Lock()
	defer c.mu.Unlock()

	pub, ok := c.topics[topic]
	if !ok {
		pub = c.source.Publisher(topic)
		if pub == nil {
			return nil
		}
		c.topics[topic] = pub
	}
	return gcpPublisher{pub}
}

// stop flushes pending messages of every cached publisher.
func (c *publisherCache) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, pub := range c.topics {
		pub.Stop()
		delete(c.topics, topic)
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}
