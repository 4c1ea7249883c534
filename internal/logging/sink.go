package logging

import "time"

// Exchange is one question/answer interaction as recorded for audit.
// Failed provider calls are recorded too, with Error set and zero cost.
type Exchange struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	RecordID   string    `json:"record_id,omitempty"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer,omitempty"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	APIKeyID   string    `json:"api_key_id,omitempty"`
	ProviderMs int64     `json:"provider_ms"`
	Error      string    `json:"error,omitempty"`
}

// Sink receives exchange records from the question pipeline. Enqueue must
// never block the request path.
type Sink interface {
	Enqueue(rec *Exchange) error
	Shutdown()
}

// NoopSink discards exchange records, for deployments with audit logging
// disabled
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *Exchange) error {
	return nil
}

func (s *NoopSink) Shutdown() {}

// MultiSink fans a record out to several sinks
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Enqueue(rec *Exchange) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Enqueue(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MultiSink) Shutdown() {
	for _, sink := range s.sinks {
		sink.Shutdown()
	}
}
