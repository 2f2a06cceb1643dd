package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/upb/chatrooms/config"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry hub when a DSN is set. The
// returned flush func is always safe to call.
func InitSentry(cfg config.ObservabilityConfig, environment, release string) (func(), error) {
	if cfg.SentryDSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      environment,
		Release:          release,
		SampleRate:       cfg.SentrySampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, fmt.Errorf("sentry init failed: %w", err)
	}

	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}
