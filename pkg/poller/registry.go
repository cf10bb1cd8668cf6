package poller

import (
	"fmt"

	"github.com/plantsense/miflora-go/pkg/miflora"
)

// Registry is the ordered, duplicate-free set of sensors a poll cycle
// covers. It is fixed at construction; poll cycles iterate it in order.
type Registry struct {
	addrs []miflora.Address
}

// NewRegistry validates the configured address list. Duplicates are a
// configuration error and are rejected before any polling starts.
func NewRegistry(addrs []miflora.Address) (*Registry, error) {
	seen := make(map[miflora.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			return nil, fmt.Errorf("duplicate sensor address %s", addr)
		}
		seen[addr] = struct{}{}
	}
	return &Registry{addrs: append([]miflora.Address(nil), addrs...)}, nil
}

// Addresses returns the configured addresses in order.
func (r *Registry) Addresses() []miflora.Address {
	return append([]miflora.Address(nil), r.addrs...)
}

func (r *Registry) Len() int {
	return len(r.addrs)
}
