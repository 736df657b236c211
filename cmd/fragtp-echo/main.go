// Command fragtp-echo is a minimal two-sided demo of the driver stack: it
// binds a UDP link, starts the tick loop, sends one message to its peer,
// and logs whatever it receives. Run two copies pointed at each other's
// bind/peer addresses to see a full transfer, ack and retransmit cycle.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ghendry/fragtp/driver"
	"github.com/ghendry/fragtp/frag"
	"github.com/ghendry/fragtp/internal/config"
	"github.com/ghendry/fragtp/internal/logging"
	"github.com/ghendry/fragtp/link"
)

func main() {
	configPath := flag.String("config", "fragtp.toml", "path to link config")
	message := flag.String("message", "", "payload to send to the peer once bound")
	flag.Parse()

	runID := uuid.New().String()
	log := logging.New("fragtp-echo").With().Str("run_id", runID).Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	lk, err := link.NewUDPLink(cfg.Bind, cfg.Peer, cfg.MTU, cfg.QueueDepth)
	if err != nil {
		log.Error().Err(err).Msg("failed to bind link")
		os.Exit(1)
	}
	defer lk.Close()

	sink := frag.FuncSink{
		TransferReceived: func(r frag.ReceivedTransfer) {
			log.Info().Uint16("id", r.Metadata.ID).Str("from", string(r.Metadata.Source)).
				Str("payload", string(r.Payload)).Msg("transfer received")
		},
		TransferAcked: func(m frag.Metadata) {
			log.Info().Uint16("id", m.ID).Msg("transfer acked")
		},
	}

	holdoff := driver.NewHoldoffLimiter(rate.Limit(cfg.HoldoffPerSecond), cfg.HoldoffBurst)

	engineCfg := frag.Config{
		InterfaceIdentifier:  frag.Address(cfg.Bind),
		RetransmitTime:       cfg.RetransmitTime(),
		DropTime:             cfg.DropTime(),
		RetransmitMultiplier: cfg.RetransmitMultiplier,
		GraceMultiplier:      cfg.GraceMultiplier,
	}

	d := driver.Bind(engineCfg, frag.SystemClock{}, lk, sink, holdoff, cfg.TickInterval())
	d.SetTracer(logging.NewTracer(log))
	d.Start()
	defer d.Stop()

	if *message != "" {
		meta := d.Transmit(frag.Address(cfg.Peer), []byte(*message))
		log.Info().Uint16("id", meta.ID).Msg("transfer queued")
	}

	fmt.Printf("%s listening on %s, peer %s (run %s) — Ctrl+C to exit\n", cfg.Name, cfg.Bind, cfg.Peer, runID)
	select {}
}
