// cmd/battmon/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/tamzrod/battmon/internal/api"
	"github.com/tamzrod/battmon/internal/config"
	"github.com/tamzrod/battmon/internal/eeprom"
	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/loop"
	"github.com/tamzrod/battmon/internal/metrics"
	"github.com/tamzrod/battmon/internal/provision"
	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/store"
	"github.com/tamzrod/battmon/internal/system"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path (optional)" type:"path"`
	EnvFile string `help:"Load environment overrides from this .env file" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Serve  struct{} `cmd:"" default:"1" help:"Run the configuration API and provisioning loop"`
	Dump   struct{} `cmd:"" help:"Print the persisted settings as JSON and exit"`
	Schema struct{} `cmd:"" help:"Print the persistent address table and exit"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("battmon"),
		kong.Description("Battery monitor configuration service."),
	)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(CLI.Config, CLI.EnvFile)
	if err != nil {
		fatal("config load failed", err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal("config validation failed", err)
	}
	config.Normalize(cfg)

	if CLI.Verbose {
		cfg.Log.Level = "debug"
	}

	log, ring, logCloser, err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		RingLines:  cfg.Log.RingLines,
	})
	if err != nil {
		fatal("logging setup failed", err)
	}
	slog.SetDefault(log)

	switch kctx.Command() {
	case "serve":
		err = runServe(cfg, log, ring, logCloser)
	case "dump":
		err = runDump(cfg, log, os.Stdout)
	case "schema":
		err = runSchema(os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}

	_ = logCloser.Close()
	if err != nil {
		fatal(kctx.Command()+" failed", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, logging.Error(err))
	os.Exit(1)
}

// --------------------
// serve
// --------------------

func runServe(cfg *config.Config, log *slog.Logger, ring *logging.Ring, logCloser io.Closer) error {
	rec := metrics.NewPrometheusRecorder(nil)

	dev, err := openBus(cfg.Storage)
	if err != nil {
		return err
	}

	reg, err := openRegistry(cfg, dev, rec, log)
	if err != nil {
		_ = dev.Close()
		return err
	}
	reg.Bootstrap()

	link, err := openLink(cfg.WiFi)
	if err != nil {
		_ = dev.Close()
		return err
	}

	lp := loop.New(0)

	restarter := &system.ExecRestarter{
		Flush: func() {
			_ = link.Close()
			_ = dev.Close()
			_ = logCloser.Close()
		},
		Rec: rec,
		Log: log,
	}

	prov, err := provision.New(provision.Config{
		JoinTimeout:  cfg.Provisioning.JoinTimeout(),
		PollInterval: cfg.Provisioning.PollInterval(),
		Grace:        cfg.Provisioning.Grace(),
	}, reg, link, restarter,
		provision.WithYield(lp.ServePending),
		provision.WithRecorder(rec),
		provision.WithLogger(log),
	)
	if err != nil {
		return err
	}

	srv, err := api.New(api.Deps{
		Loop:        lp,
		Registry:    reg,
		Provisioner: prov,
		Restarter:   restarter,
		Ring:        ring,
		Metrics:     rec.Handler(),
		Log:         log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		_ = lp.Run(ctx)
	}()

	// join the stored network (if any) before anything else runs on the loop
	if err := lp.Post(ctx, prov.Boot); err != nil {
		return err
	}

	err = srv.ListenAndServe(ctx, cfg.HTTP.Listen)

	_ = link.Close()
	_ = dev.Close()
	return err
}

// --------------------
// dump
// --------------------

type dumpView struct {
	Settings      map[string]float32 `json:"settings"`
	TotalCoulombs float64            `json:"total_coulombs"`
	NetworkSSID   string             `json:"network_ssid"`
	PasswordSet   bool               `json:"network_password_set"`
}

func runDump(cfg *config.Config, log *slog.Logger, w io.Writer) error {
	dev, err := openBus(cfg.Storage)
	if err != nil {
		return err
	}
	defer dev.Close()

	reg, err := openRegistry(cfg, dev, metrics.NoopRecorder{}, log)
	if err != nil {
		return err
	}
	reg.Bootstrap()

	s := reg.Settings()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dumpView{
		Settings:      reg.Snapshot(),
		TotalCoulombs: s.TotalCoulombs,
		NetworkSSID:   s.Network.SSID,
		PasswordSet:   s.Network.Password != "",
	})
}

// --------------------
// schema
// --------------------

func runSchema(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tADDR\tWIDTH\tKIND\tRANGE")
	for _, f := range registry.DefaultSchema() {
		rng := ""
		if f.Clamp != nil {
			rng = "[0,100]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", f.Key, f.Addr, f.Width, f.Kind, rng)
	}
	return tw.Flush()
}

// --------------------
// shared wiring
// --------------------

func openRegistry(cfg *config.Config, dev eeprom.Bus, rec metrics.Recorder, log *slog.Logger) (*registry.Registry, error) {
	st := store.New(dev,
		store.WithSettleDelay(cfg.Storage.SettleDelay()),
		store.WithRecorder(rec),
		store.WithLogger(log),
	)
	return registry.New(st, registry.DefaultSchema(),
		registry.WithDeviceSize(cfg.Storage.Size),
		registry.WithRecorder(rec),
		registry.WithLogger(log),
	)
}
