// poller reconsulta periódicamente los tickets de comunicaciones de baja que siguen
// en SUBMITTED o IN_PROCESS (código 98).
//
// Uso: go run ./cmd/poller [-once]
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/infrastructure/wiring"
	"github.com/jhoicas/facturador-sunat/pkg/config"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "ejecutar una sola pasada y salir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-poller"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := wiring.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer components.Close()

	pollLog := log.Component("poller")
	pass := func() {
		summary, err := components.Lifecycle.PollPending(ctx, cfg.Poller.BatchSize, cfg.Poller.Concurrency)
		if err != nil {
			pollLog.Error().Err(err).Msg("pasada de tickets fallida")
			return
		}
		if summary.Checked == 0 {
			pollLog.Debug().Msg("sin tickets pendientes")
			return
		}
		pollLog.Info().
			Int("checked", summary.Checked).
			Int("accepted", summary.Accepted).
			Int("rejected", summary.Rejected).
			Int("in_process", summary.InProcess).
			Int("failed", summary.Failed).
			Msg("pasada de tickets completada")
	}

	pollLog.Info().
		Dur("interval", cfg.Poller.Interval).
		Int("batch_size", cfg.Poller.BatchSize).
		Int("concurrency", cfg.Poller.Concurrency).
		Msg("poller iniciado")

	pass()
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Poller.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			pollLog.Info().Msg("poller detenido")
			return
		case <-ticker.C:
			pass()
		}
	}
}
