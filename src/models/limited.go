package models

import (
	"context"

	"github.com/Protocol-Lattice/codeassist/src/concurrent"
)

// LimitedLLM bounds how many Generate calls reach the wrapped Agent at once.
type LimitedLLM struct {
	Agent   Agent
	Limiter *concurrent.Limiter
}

// Generate waits for a free slot (or ctx) before calling the agent.
func (l *LimitedLLM) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	err := l.Limiter.Do(ctx, func() error {
		var err error
		out, err = l.Agent.Generate(ctx, req)
		return err
	})
	return out, err
}

// TryCreateLimitedLLM wraps agent when max > 0.
func TryCreateLimitedLLM(agent Agent, max int) Agent {
	limiter := concurrent.NewLimiter(max)
	if limiter == nil {
		return agent
	}
	return &LimitedLLM{Agent: agent, Limiter: limiter}
}
