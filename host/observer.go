package host

import "time"

// CallObservation captures one completed call, success or failure.
type CallObservation struct {
	Operation string
	CallID    string
	Duration  time.Duration
	Success   bool
	ErrorCode string
}

// HealthObservation captures one downstream health probe result.
// ErrorCode is empty when the probe succeeded.
type HealthObservation struct {
	Probe     string
	Duration  time.Duration
	ErrorCode string
}

// Observer receives host-level observability events.
type Observer interface {
	ObserveCall(observation CallObservation)
	ObserveHealth(observation HealthObservation)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) ObserveCall(CallObservation)     {}
func (NopObserver) ObserveHealth(HealthObservation) {}
