package circuitbreaker

import (
	"context"
	"time"

	"aigateway/gwerrors"
	"aigateway/internal"
)

// RecordFailure marks an endpoint as failed, potentially opening its
// circuit. kind is the gwerrors.Kind the caller is about to report to its
// own client for this same failure (KindUpstream for a non-2xx response or
// transport error), carried into EndpointHealth.LastFailureKind so a later
// GetHealthDebug call can explain why a circuit tripped, not just that it
// did. ctx supplies the request id (internal.GetRequestID) tying the trip
// back to the request that caused it.
func (hm *HealthManager) RecordFailure(ctx context.Context, endpoint string, kind gwerrors.Kind) {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		health = &EndpointHealth{URL: endpoint}
		hm.healthMap[endpoint] = health
	}

	requestID := internal.GetRequestID(ctx)

	health.FailureCount++
	health.TotalRequests++
	health.LastFailureTime = time.Now()
	health.LastFailureKind = kind.String()
	health.LastRequestID = requestID

	// Open circuit if failure threshold exceeded
	if health.FailureCount >= hm.config.FailureThreshold {
		health.CircuitOpen = true

		// Backoff grows linearly with each failure past the threshold, capped at max
		failuresOverThreshold := health.FailureCount - hm.config.FailureThreshold + 1
		if failuresOverThreshold < 1 {
			failuresOverThreshold = 1
		}
		backoff := time.Duration(int64(hm.config.BackoffDuration) * int64(failuresOverThreshold))
		if backoff > hm.config.MaxBackoffDuration {
			backoff = hm.config.MaxBackoffDuration
		}

		now := time.Now()
		health.NextRetryTime = now.Add(backoff)

		hm.logEvent("warn", requestID, "circuitbreaker",
			map[string]interface{}{"endpoint": endpoint, "kind": kind.String(), "failures": health.FailureCount, "retry_in": backoff.String()},
			"circuit breaker opened for endpoint %s (kind: %s, failures: %d, retry in: %v)", endpoint, kind, health.FailureCount, backoff)
	} else {
		hm.logEvent("info", requestID, "circuitbreaker",
			map[string]interface{}{"endpoint": endpoint, "kind": kind.String(), "failures": health.FailureCount, "threshold": hm.config.FailureThreshold},
			"endpoint failure recorded: %s (kind: %s, failures: %d/%d)", endpoint, kind, health.FailureCount, hm.config.FailureThreshold)
	}
}

// RecordSuccess marks an endpoint as successful and potentially closes its circuit
func (hm *HealthManager) RecordSuccess(ctx context.Context, endpoint string) {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		health = &EndpointHealth{URL: endpoint}
		hm.healthMap[endpoint] = health
	}

	requestID := internal.GetRequestID(ctx)

	// Update success metrics
	health.SuccessCount++
	health.TotalRequests++
	health.LastSuccessTime = time.Now()
	health.LastRequestID = requestID

	// If circuit was open, close it and reset
	if health.CircuitOpen {
		health.CircuitOpen = false
		health.FailureCount = 0
		health.LastFailureKind = ""
		health.NextRetryTime = time.Time{}
		hm.logEvent("info", requestID, "circuitbreaker",
			map[string]interface{}{"endpoint": endpoint}, "circuit breaker closed for endpoint %s (recovered)", endpoint)
	} else if health.FailureCount > 0 {
		// Reset failure count on success
		health.FailureCount = 0
		health.LastFailureKind = ""
		hm.logEvent("info", requestID, "circuitbreaker",
			map[string]interface{}{"endpoint": endpoint}, "endpoint recovered: %s (failure count reset)", endpoint)
	}
}

// SelectHealthyEndpoint returns the next healthy endpoint from a list
func (hm *HealthManager) SelectHealthyEndpoint(ctx context.Context, endpoints []string, currentIndex *int) string {
	if len(endpoints) == 0 {
		return ""
	}

	requestID := internal.GetRequestID(ctx)

	// Try to find a healthy endpoint, starting from current index
	attempts := 0
	maxAttempts := len(endpoints)

	for attempts < maxAttempts {
		endpoint := endpoints[*currentIndex]
		*currentIndex = (*currentIndex + 1) % len(endpoints)
		attempts++

		if hm.IsHealthy(endpoint) {
			return endpoint
		}

		failureCount, circuitOpen, nextRetry, exists := hm.GetHealthDebug(endpoint)
		if exists {
			hm.logEvent("warn", requestID, "circuitbreaker",
				map[string]interface{}{"endpoint": endpoint, "failures": failureCount, "circuit_open": circuitOpen, "retry_at": nextRetry},
				"skipping unhealthy endpoint: %s (failures: %d, circuit open: %v, retry at: %v)", endpoint, failureCount, circuitOpen, nextRetry)
		} else {
			hm.logEvent("warn", requestID, "circuitbreaker",
				map[string]interface{}{"endpoint": endpoint}, "skipping endpoint with no health info: %s", endpoint)
		}
	}

	// If no healthy endpoints found, return the next one anyway (last resort)
	endpoint := endpoints[*currentIndex]
	*currentIndex = (*currentIndex + 1) % len(endpoints)
	hm.logEvent("warn", requestID, "circuitbreaker",
		map[string]interface{}{"endpoint": endpoint}, "no healthy endpoints found, using fallback: %s", endpoint)
	return endpoint
}
