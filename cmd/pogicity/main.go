// Command pogicity runs the city simulation and streams its state over
// websockets for a browser viewer.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twofactor/pogicity-demo/internal/config"
	"github.com/twofactor/pogicity-demo/internal/signal"
	"github.com/twofactor/pogicity-demo/internal/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		addr     string
		seed     uint64
		vehicles int
		peds     int
		tickMS   int
	)
	cmd := &cobra.Command{
		Use:           "pogicity",
		Short:         "Tile-city traffic and pedestrian simulation server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("vehicles") {
				cfg.Vehicles.Count = vehicles
			}
			if cmd.Flags().Changed("peds") {
				cfg.Pedestrians.Count = peds
			}
			if cmd.Flags().Changed("tick-ms") {
				cfg.Server.TickMS = tickMS
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for the stream server")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "world and simulation seed")
	cmd.Flags().IntVar(&vehicles, "vehicles", 24, "number of vehicles to spawn")
	cmd.Flags().IntVar(&peds, "peds", 40, "number of pedestrians to spawn")
	cmd.Flags().IntVar(&tickMS, "tick-ms", 33, "simulation tick interval in milliseconds")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := ossignal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	grid := sim.BuildCity(cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.BlockPeriod, cfg.Seed)
	ctl := signal.NewController(grid, signal.Plan{
		GreenTicks:  cfg.Signals.GreenTicks,
		YellowTicks: cfg.Signals.YellowTicks,
		AllRedTicks: cfg.Signals.AllRedTicks,
	})
	log.Info("city built",
		"width", grid.Width(), "height", grid.Height(),
		"junctions", ctl.Junctions(), "crosswalks", ctl.Crosswalks())

	traffic := sim.NewTrafficSystem(cfg.Seed)
	traffic.SetGrid(grid)
	traffic.SetSignals(ctl)
	traffic.SetYieldToPedestrians(cfg.Vehicles.YieldToPedestrians)

	walkers := sim.NewPedestrianSystem(cfg.Seed + 1)
	walkers.SetGrid(grid)
	walkers.SetSignals(ctl)

	// Spawns can fail on crowded or tiny maps; retry a bounded number of
	// times and run with whatever fits.
	for attempts := 0; traffic.Count() < cfg.Vehicles.Count && attempts < cfg.Vehicles.Count*20; attempts++ {
		traffic.Spawn()
	}
	for attempts := 0; walkers.Count() < cfg.Pedestrians.Count && attempts < cfg.Pedestrians.Count*20; attempts++ {
		walkers.Spawn()
	}
	if traffic.Count() < cfg.Vehicles.Count {
		log.Warn("vehicle spawn fell short", "want", cfg.Vehicles.Count, "got", traffic.Count())
	}
	if walkers.Count() < cfg.Pedestrians.Count {
		log.Warn("pedestrian spawn fell short", "want", cfg.Pedestrians.Count, "got", walkers.Count())
	}
	log.Info("simulation ready", "vehicles", traffic.Count(), "pedestrians", walkers.Count(),
		"yield_to_pedestrians", cfg.Vehicles.YieldToPedestrians)

	h := newHub(log, grid)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info("stream server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.Server.TickMS) * time.Millisecond)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down", "ticks", tick)
			h.closeAll()
			shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		case err := <-errCh:
			return err
		case <-ticker.C:
			ctl.Step()
			walkers.Update()
			traffic.Update()
			tick++
			h.broadcast(buildFrame(tick, ctl.Phase(), traffic, walkers))
		}
	}
}
