package capture

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Handle is an opened capture source.
//
// ReadPacketData returns core.ErrCaptureTimeout when no frame arrived within
// the read timeout and io.EOF when the source is exhausted. The returned
// bytes are only valid until the next call.
type Handle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
	Close()
}

// Options are the interface-open parameters handed to a backend.
type Options struct {
	Interface    string
	File         string
	SnapLen      int
	Promiscuous  bool
	Timeout      time.Duration // 0 = non-blocking poll
	BPFFilter    string
	BufferSizeMB int
}

// Opener opens a Handle for one backend.
type Opener func(opts Options) (Handle, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes a backend available under name. Backends call it from init.
func Register(name string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if open == nil {
		panic("capture: Register opener is nil")
	}
	if _, dup := registry[name]; dup {
		panic("capture: Register called twice for backend " + name)
	}
	registry[name] = open
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Opener, error) {
	registryMu.RLock()
	open, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown capture backend %q (available: %v)", name, Backends())
	}
	return open, nil
}
