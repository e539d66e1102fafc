// Package audit records security-relevant actions (logins, forced
// redirects, credential mutations) on a dedicated structured log stream.
package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

var auditLogger = log.Output(os.Stdout).With().Str("stream", "audit").Logger()

// Log records one audit event. Actor is the account id or submitted
// identifier acting; target is the affected resource.
func Log(service, action, actor, target, details string, success bool, err error) {
	event := auditLogger.Log().
		Time("timestamp", time.Now().UTC()).
		Str("service", service).
		Str("action", action).
		Bool("success", success)
	if actor != "" {
		event = event.Str("actor", actor)
	}
	if target != "" {
		event = event.Str("target", target)
	}
	if details != "" {
		event = event.Str("details", details)
	}
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("audit event")
}
