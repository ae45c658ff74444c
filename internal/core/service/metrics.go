package service

// Metrics receives core events. internal/telemetry/metric implements it.
type Metrics interface {
	TokenIssued(tier string)
	IssuanceDenied(reason string)
	TokenClaimed()
	ValidationFailed(code string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) TokenIssued(string)      {}
func (NopMetrics) IssuanceDenied(string)   {}
func (NopMetrics) TokenClaimed()           {}
func (NopMetrics) ValidationFailed(string) {}
