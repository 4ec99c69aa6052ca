package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// EndpointSupplier manages a pool of service base URLs with round-robin selection
type EndpointSupplier interface {
	Get() string
}

type endpointSupplier struct {
	endpoints []string
	current   int
	mutex     sync.Mutex
}

// NewEndpointSupplier probes the configured mirrors and rotates over the ones
// that answer. If nothing answers the probe, the full list is kept so that a
// service that was briefly down at startup still becomes reachable; per
// request errors surface through the client.
func NewEndpointSupplier(ctx context.Context, endpoints []string, probePath string) (EndpointSupplier, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one service endpoint is required")
	}

	normalized := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		normalized = append(normalized, strings.TrimRight(endpoint, "/"))
	}

	if len(normalized) == 1 {
		return &endpointSupplier{endpoints: normalized}, nil
	}

	log.Infof("🔄 Probing %d service endpoints in parallel...", len(normalized))

	healthyCh := make(chan string, len(normalized))
	semaphore := make(chan struct{}, 8)

	var wg sync.WaitGroup
	for i, endpoint := range normalized {
		wg.Add(1)

		go func(index int, endpoint string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			log.Debugf("🔄 Probing endpoint %d/%d: %s", index+1, len(normalized), endpoint)

			if isEndpointHealthy(ctx, endpoint, probePath) {
				healthyCh <- endpoint
				log.Infof("✅ Endpoint %s is answering", endpoint)
			} else {
				log.Infof("❌ Endpoint %s is not answering, skipping", endpoint)
			}
		}(i, endpoint)
	}

	wg.Wait()
	close(healthyCh)

	healthy := make([]string, 0, len(normalized))
	for endpoint := range healthyCh {
		healthy = append(healthy, endpoint)
	}

	if len(healthy) == 0 {
		log.Warnf("⚠️ No endpoint answered the probe, keeping all %d configured", len(normalized))
		healthy = normalized
	} else {
		log.Infof("✅ EndpointSupplier initialized with %d answering endpoints out of %d probed", len(healthy), len(normalized))
	}

	return &endpointSupplier{endpoints: healthy}, nil
}

// Get returns the next base URL in round-robin fashion
func (s *endpointSupplier) Get() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	endpoint := s.endpoints[s.current]
	s.current = (s.current + 1) % len(s.endpoints)

	return endpoint
}

// isEndpointHealthy checks whether a base URL answers the probe path
func isEndpointHealthy(ctx context.Context, endpoint, probePath string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0)

	resp, err := client.R().
		SetContext(ctx).
		Get(endpoint + probePath)

	if err != nil {
		log.Debugf("Endpoint probe failed for %s: %v", endpoint, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Endpoint probe failed for %s with status: %s", endpoint, resp.Status())
		return false
	}

	return true
}
