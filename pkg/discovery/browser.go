package discovery

import (
	"context"
	"time"
)

// Browser provides mDNS service browsing capabilities.
type Browser interface {
	// Browse searches for bridges. Each instance is emitted once, with the
	// addresses known at that point.
	// The channel is closed when the context is cancelled or browsing ends.
	Browse(ctx context.Context) (<-chan *BridgeService, error)

	// FindFirst returns the first bridge that matches. An empty instance
	// name matches any bridge.
	FindFirst(ctx context.Context, instanceName string) (*BridgeService, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds Resolve.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}
