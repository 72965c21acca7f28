package vectorstore

import (
	"fmt"
	"strings"
	"sync"
)

// hostCache resolves index names to their data-plane base URLs via the
// control plane, caching results in-memory so repeated batch calls don't
// re-describe the index.
type hostCache struct {
	client *PineconeClient
	known  map[string]string
	mu     sync.RWMutex
}

func newHostCache(client *PineconeClient) *hostCache {
	return &hostCache{
		client: client,
		known:  make(map[string]string),
	}
}

func (h *hostCache) resolve(indexName string) (string, error) {
	h.mu.RLock()
	if host, ok := h.known[indexName]; ok {
		h.mu.RUnlock()
		return host, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	// Double-check after acquiring write lock
	if host, ok := h.known[indexName]; ok {
		return host, nil
	}

	info, err := h.client.DescribeIndex(indexName)
	if err != nil {
		return "", fmt.Errorf("resolve index host %s: %w", indexName, err)
	}
	if info.Host == "" {
		return "", fmt.Errorf("index %s has no host", indexName)
	}

	host := info.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	host = strings.TrimSuffix(host, "/")

	h.known[indexName] = host
	return host, nil
}

func (h *hostCache) forget(indexName string) {
	h.mu.Lock()
	delete(h.known, indexName)
	h.mu.Unlock()
}
