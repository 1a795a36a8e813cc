package lease

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLease implements Lease in-process, for tests and single-node
// development setups.
type MemoryLease struct {
	mu      sync.Mutex
	holders map[string]string
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{holders: make(map[string]string)}
}

func (l *MemoryLease) Acquire(_ context.Context, environmentID, promotionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if holder, held := l.holders[environmentID]; held && holder != promotionID {
		return fmt.Errorf("%w: %s", ErrHeld, environmentID)
	}

	l.holders[environmentID] = promotionID

	return nil
}

func (l *MemoryLease) Release(_ context.Context, environmentID, promotionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holders[environmentID] == promotionID {
		delete(l.holders, environmentID)
	}

	return nil
}
