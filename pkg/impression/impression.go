// Package impression records which result modules appeared on each finished
// result page. Records go to the operator log and, when a firehose is
// attached, to connected websocket listeners. Logging is fire-and-forget: the
// search path never blocks on it.
package impression

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/log"
)

// Record is one page impression.
type Record struct {
	ID       string        `json:"id"`
	Tenant   string        `json:"tenant"`
	Vertical core.Vertical `json:"vertical"`
	Query    string        `json:"query"`
	Modules  []string      `json:"modules"`
	Time     time.Time     `json:"time"`
}

// Logger emits impression records. A nil *Logger is valid and drops
// everything, so callers never need to guard.
type Logger struct {
	logger   *log.Logger
	firehose *Firehose
}

// NewLogger builds an impression logger. firehose may be nil.
func NewLogger(firehose *Firehose) *Logger {
	return &Logger{
		logger:   log.ForService("impressions"),
		firehose: firehose,
	}
}

// Log records one page impression. Never blocks; slow firehose listeners
// drop records.
func (l *Logger) Log(tenant string, vertical core.Vertical, query string, modules []string) {
	if l == nil {
		return
	}
	rec := Record{
		ID:       uuid.NewString(),
		Tenant:   tenant,
		Vertical: vertical,
		Query:    query,
		Modules:  modules,
		Time:     time.Now().UTC(),
	}
	l.logger.Infof("tenant=%s vertical=%s modules=%s query=%q", tenant, vertical, strings.Join(modules, ","), query)
	if l.firehose != nil {
		l.firehose.Broadcast(rec)
	}
}
