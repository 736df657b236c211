// Package logging sets up the structured logger shared by the driver
// CLI and any embedding application: a console-oriented zerolog logger
// plus a frag.Tracer adapter that turns engine events into log lines.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghendry/fragtp/frag"
)

// New builds a timestamped, app-tagged console logger.
func New(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}

// Tracer adapts a zerolog.Logger to frag.Tracer, logging one line per
// engine-internal event at debug level except drops, which are warnings.
type Tracer struct {
	log zerolog.Logger
}

// NewTracer wraps log as a frag.Tracer.
func NewTracer(log zerolog.Logger) Tracer {
	return Tracer{log: log}
}

func (t Tracer) TransferCreated(id uint16, peer frag.Address) {
	t.log.Debug().Uint16("id", id).Str("peer", string(peer)).Msg("transfer created")
}

func (t Tracer) FragmentAssigned(id uint16, index uint8) {
	t.log.Debug().Uint16("id", id).Uint8("fragment", index).Msg("fragment assigned")
}

func (t Tracer) TransferCompleted(id uint16) {
	t.log.Debug().Uint16("id", id).Msg("transfer completed")
}

func (t Tracer) TransferAcked(id uint16) {
	t.log.Debug().Uint16("id", id).Msg("transfer acked")
}

func (t Tracer) RetransmitRequested(id uint16, index uint8) {
	t.log.Debug().Uint16("id", id).Uint8("fragment", index).Msg("retransmit requested")
}

func (t Tracer) RetransmitSent(id uint16) {
	t.log.Debug().Uint16("id", id).Msg("retransmit sent")
}

func (t Tracer) RecordDropped(id uint16, reason string) {
	t.log.Warn().Uint16("id", id).Str("reason", reason).Msg("record dropped")
}
