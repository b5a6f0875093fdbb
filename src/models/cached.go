package models

import (
	"context"
	"strconv"
	"time"

	"github.com/Protocol-Lattice/codeassist/src/cache"
)

// CachedLLM wraps an Agent and caches successful Generate calls keyed by the
// full request. Failed calls are never cached.
type CachedLLM struct {
	Agent Agent
	Cache *cache.LRUCache[string]
}

// NewCachedLLM creates a new CachedLLM wrapper.
func NewCachedLLM(agent Agent, size int, ttl time.Duration) *CachedLLM {
	return &CachedLLM{
		Agent: agent,
		Cache: cache.NewLRUCache[string](size, ttl),
	}
}

// Generate checks the cache before calling the underlying agent.
func (c *CachedLLM) Generate(ctx context.Context, req Request) (string, error) {
	key := requestKey(req)
	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Agent.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	return res, nil
}

func requestKey(req Request) string {
	parts := [][]byte{
		[]byte(req.Model),
		[]byte(req.System),
		[]byte(strconv.FormatFloat(req.Temperature, 'g', -1, 64)),
		[]byte(strconv.Itoa(req.MaxTokens)),
	}
	for _, b := range req.Blocks {
		parts = append(parts, []byte(b.Kind), []byte(b.Text), []byte(b.MediaType), []byte(b.Data))
	}
	return cache.HashKey(parts...)
}

// TryCreateCachedLLM wraps the agent when caching is enabled (size > 0).
func TryCreateCachedLLM(agent Agent, size int, ttl time.Duration) Agent {
	if size <= 0 {
		return agent
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return NewCachedLLM(agent, size, ttl)
}
