package provider

import (
	"sync"
	"time"
)

// BaseProvider implements common provider functionality.
// It tracks call sequence results for health reporting.
type BaseProvider struct {
	Name string

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewBaseProvider creates a new BaseProvider. It reports unavailable until
// the first success is recorded.
func NewBaseProvider(name string) *BaseProvider {
	return &BaseProvider{Name: name}
}

// GetName returns the provider's name.
func (p *BaseProvider) GetName() string {
	return p.Name
}

// GetHealth returns the provider's health status.
func (p *BaseProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// IsAvailable checks if the provider is available.
func (p *BaseProvider) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health.Available
}

// RecordSuccess records a call sequence that returned a value.
func (p *BaseProvider) RecordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.LastError = ""

	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

// RecordFailure records a call sequence that gave up.
func (p *BaseProvider) RecordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	if err != nil {
		p.health.LastError = err.Error()
	}

	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
