package handoff

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process single-slot channel, used when both contexts
// run inside one binary and in tests.
type MemoryChannel struct {
	mu      sync.Mutex
	payload string
	full    bool
}

func NewMemory() *MemoryChannel {
	return &MemoryChannel{}
}

func (c *MemoryChannel) Send(_ context.Context, payload string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = payload
	c.full = true
	return Delivered
}

func (c *MemoryChannel) Receive(_ context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.full {
		return "", false, nil
	}
	payload := c.payload
	c.payload = ""
	c.full = false
	return payload, true, nil
}
