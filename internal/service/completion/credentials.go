package completion

import "sync"

// Credentials holds the user-supplied completion credential in process
// memory only. It is never persisted and is sent solely in the outbound
// request's authorization header.
type Credentials struct {
	mu  sync.RWMutex
	key string
}

// NewCredentials returns an unset credential holder.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// Set overwrites the stored credential.
func (c *Credentials) Set(key string) {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
}

// Get returns the current credential, or the empty string when unset.
func (c *Credentials) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}
