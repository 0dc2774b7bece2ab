// Package calllog records a structured audit entry for every external API
// call. Recording is fire-and-forget: it must never fail or slow down the
// caller that made the provider request.
package calllog

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
)

// Call describes one external API call
type Call struct {
	Provider   string
	Endpoint   string
	Method     string
	StatusCode int
	Success    bool
	Duration   time.Duration
	Err        error
}

// Recorder receives call records
type Recorder interface {
	Record(call Call)
}

// StoreRecorder logs every call through logrus and appends an audit row
type StoreRecorder struct {
	log   *logrus.Logger
	store *social.Store
}

// NewStoreRecorder creates a recorder backed by the given logger and store
func NewStoreRecorder(log *logrus.Logger, store *social.Store) *StoreRecorder {
	return &StoreRecorder{log: log, store: store}
}

// Record logs the call and persists it in the background. Errors are logged,
// never returned; a panic in the write path is swallowed.
func (r *StoreRecorder) Record(call Call) {
	fields := logrus.Fields{
		"provider":    call.Provider,
		"endpoint":    call.Endpoint,
		"method":      call.Method,
		"status_code": call.StatusCode,
		"success":     call.Success,
		"duration_ms": call.Duration.Milliseconds(),
	}

	if call.Success {
		r.log.WithFields(fields).Info("external api call")
	} else {
		if call.Err != nil {
			fields["error"] = call.Err.Error()
		}
		r.log.WithFields(fields).Warn("external api call failed")
	}

	entry := &social.APICall{
		Provider:   call.Provider,
		Endpoint:   call.Endpoint,
		Method:     call.Method,
		StatusCode: call.StatusCode,
		Success:    call.Success,
		DurationMs: call.Duration.Milliseconds(),
	}
	if call.Err != nil {
		entry.ErrorMessage = call.Err.Error()
	}

	go func() {
		defer func() {
			_ = recover()
		}()
		if err := r.store.RecordAPICall(entry); err != nil {
			r.log.WithError(err).Warn("failed to persist api call record")
		}
	}()
}

// NopRecorder discards every call record
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(Call) {}
