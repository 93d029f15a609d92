// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package simmain is the command line front end of the simulator: it loads settings, runs one
// simulation on a background engine and reports progress until the horizon or a signal.
package simmain

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/progctx"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/simulation"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type MainArgs struct {
	SettingsFile string
	LogLevel     string
	LogFile      string
	KpiFile      string
	Seed         int64
	NumMotes     int
	Slotframes   int
	Step         int
	StatsFile    string
	EnergyDir    string
	MetricsAddr  string
	Trace        bool
}

var (
	args MainArgs
)

func parseArgs(argv []string) error {
	fs := flag.NewFlagSet("tschsim", flag.ContinueOnError)
	fs.StringVar(&args.SettingsFile, "settings", "", "YAML settings file; defaults are used for missing keys")
	fs.StringVar(&args.LogLevel, "log-level", "", "set logging level: trace, debug, info, note, warn, error, off; defaults to log_level of the settings")
	fs.StringVar(&args.LogFile, "log-file", "", "write the simulation event log as JSON lines to this file")
	fs.StringVar(&args.KpiFile, "kpi-file", "", "write the KPI summary as JSON to this file")
	fs.Int64Var(&args.Seed, "seed", -1, "random seed; -1 keeps the seed of the settings")
	fs.IntVar(&args.NumMotes, "motes", 0, "number of motes; 0 keeps the settings value")
	fs.IntVar(&args.Slotframes, "slotframes", 0, "number of slotframes to run; 0 keeps the settings value")
	fs.IntVar(&args.Step, "step", 100, "report progress every this many slotframes")
	fs.StringVar(&args.StatsFile, "stats-file", "", "write periodic network statistics as CSV to this file")
	fs.StringVar(&args.EnergyDir, "energy-dir", "", "write the energy tables into this directory")
	fs.StringVar(&args.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. localhost:9100")
	fs.BoolVar(&args.Trace, "trace", false, "print OpenTelemetry spans of the engine runs to stdout")
	return fs.Parse(argv)
}

func loadSettings() (*settings.Settings, error) {
	s := settings.Default()
	if args.SettingsFile != "" {
		var err error
		if s, err = settings.Load(args.SettingsFile); err != nil {
			return nil, err
		}
	}
	if args.LogFile != "" {
		s.LogFile = args.LogFile
	}
	if args.KpiFile != "" {
		s.KpiFile = args.KpiFile
	}
	if args.Seed >= 0 {
		s.RandomSeed = args.Seed
	}
	if args.NumMotes > 0 {
		s.NumMotes = args.NumMotes
	}
	if args.Slotframes > 0 {
		s.NumSlotframesPerRun = args.Slotframes
	}
	return s, nil
}

// Main runs the simulator with the given command line arguments and returns the process exit code.
func Main(argv []string) int {
	if err := parseArgs(argv); err != nil {
		return 2
	}
	defer logger.Sync()

	s, err := loadSettings()
	if err != nil {
		reportError(err)
		return 1
	}
	levelString := args.LogLevel
	if levelString == "" {
		levelString = s.LogLevel
	}
	level, err := logger.ParseLevelString(levelString)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	logger.SetLevel(level)

	ctx := progctx.New(context.Background())
	handleSignals(ctx)

	opts := []simulation.Option{
		simulation.WithStatsFile(args.StatsFile),
		simulation.WithEnergyDir(args.EnergyDir),
	}
	var tp *sdktrace.TracerProvider
	if args.Trace {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			reportError(errors.Wrap(err, "creating trace exporter"))
			return 1
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		opts = append(opts, simulation.WithTracerProvider(tp))
	}

	sim, err := simulation.New(s, opts...)
	if err != nil {
		reportError(err)
		ctx.Cancel(nil)
		ctx.Wait()
		return 1
	}
	if args.MetricsAddr != "" {
		serveMetrics(ctx, sim)
	}

	status := autoGo(ctx, sim)
	ctx.Cancel(nil)
	ctx.Wait()

	code := 0
	if status == engine.RunCancelled {
		if err = sim.Abort("interrupted"); err != nil {
			logger.Errorf("closing the event log failed: %v", err)
		}
		code = 130
	}
	if tp != nil {
		if err = tp.Shutdown(context.Background()); err != nil {
			logger.Warnf("flushing traces failed: %v", err)
		}
	}
	if status != engine.RunCancelled {
		kpi := sim.Kpi().Calculate()
		logger.Infof("run %s: %d/%d packets reached the root, %d motes joined", status,
			kpi.Network.App.ReachedRoot, kpi.Network.App.Generated, kpi.Network.Joined)
	}
	return code
}

func reportError(err error) {
	if settings.IsConfigError(err) {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
	}
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func serveMetrics(ctx *progctx.ProgCtx, sim *simulation.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sim.Metrics().Handler())
	server := &http.Server{Addr: args.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx.Go("metrics", func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
			logger.Errorf("metrics server stopped unexpectedly: %v", err)
		}
	})
	ctx.Defer(func() {
		_ = server.Close()
	})
	logger.Infof("serving metrics on http://%s/metrics", args.MetricsAddr)
}

// autoGo runs the simulation in steps of args.Step slotframes, reporting progress after each step.
func autoGo(ctx *progctx.ProgCtx, sim *simulation.Context) engine.RunStatus {
	sim.StartAsync(ctx)
	ctrl := simulation.NewSimulationController(sim)
	s := sim.Settings()
	step := Asn(args.Step) * Asn(s.SlotframeLength)
	if step == 0 {
		step = s.HorizonSlots()
	}

	until := Asn(0)
	for {
		until += step
		done, err := ctrl.CtrlResume(until)
		logger.PanicIfError(err)
		status := <-done
		if status != engine.RunPaused {
			return status
		}
		logger.Infof("ASN %d (%.0f s): %d packets generated, %d reached the root", until,
			float64(until)*s.SlotDuration, sim.Log().Count(simlog.AppTx), sim.Log().Count(simlog.AppReachesRoot))
		if ctx.Err() != nil {
			return engine.RunCancelled
		}
	}
}
