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

// Package simulation assembles and runs a simulated network: a Context owns the engine, the
// settings, the event log, the connectivity, the metrics and the motes of one run.
package simulation

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/energy"
	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/metrics"
	"github.com/atiselsts/6tisch-simulator-sub000/mote"
	"github.com/atiselsts/6tisch-simulator-sub000/progctx"
	"github.com/atiselsts/6tisch-simulator-sub000/prng"
	"github.com/atiselsts/6tisch-simulator-sub000/propagation"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const connectivityRefreshTag = "connectivity-refresh"

// Context is one simulation run. Everything a run mutates hangs off its Context, so several runs
// can live in the same process.
type Context struct {
	s              *settings.Settings
	cfg            *Config
	gens           *prng.Generators
	conn           connectivity.Matrix
	eng            *engine.Engine
	log            *simlog.Log
	metrics        *metrics.Metrics
	medium         *propagation.Dispatcher
	energyAnalyser *energy.EnergyAnalyser
	motes          []*mote.Mote
	kpi            *KpiManager
	finished       bool
}

// New validates the settings and builds a ready-to-run network. Configuration problems are
// returned as errors for which settings.IsConfigError holds.
func New(s *settings.Settings, opts ...Option) (*Context, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Context{
		s:              s.Clone(),
		cfg:            cfg,
		gens:           prng.New(s.RandomSeed),
		energyAnalyser: energy.NewEnergyAnalyser(),
	}
	s = c.s

	conn, err := connectivity.New(s, c.gens.Topology())
	if err != nil {
		return nil, err
	}
	c.conn = conn

	var engOpts []engine.Option
	if cfg.TracerProvider != nil {
		engOpts = append(engOpts, engine.WithTracerProvider(cfg.TracerProvider))
	}
	c.eng = engine.New(engOpts...)

	if err = c.setupLog(); err != nil {
		return nil, err
	}

	interf, err := propagation.NewInterference(s.ConnInterference)
	if err != nil {
		return nil, err
	}
	c.medium = propagation.NewDispatcher(c.eng, conn, interf, c.gens.Propagation(), c.log)

	env := &mote.Env{
		Settings: s,
		Sched:    c.eng,
		Log:      c.log,
		Medium:   c.medium,
		Conn:     conn,
		Energy:   c.energyAnalyser,
	}
	c.motes = make([]*mote.Mote, s.NumMotes)
	for id := 0; id < s.NumMotes; id++ {
		m := mote.New(id, env, c.gens.NewMoteRand())
		c.motes[id] = m
		c.medium.Attach(id, m)
	}

	for kind := event.Kind(0); kind < event.NumKinds; kind++ {
		if kind != event.KindMarker && kind != event.KindTerminate {
			c.eng.RegisterHandler(kind, c)
		}
	}

	c.log.Emit(simlog.SimulatorStart, InvalidMoteId,
		zap.String(simlog.KeySummary, s.String()),
		zap.Int64(simlog.KeySeed, c.gens.RootSeed()),
	)
	if s.ForceInitialState {
		if err = c.forceInitialState(); err != nil {
			return nil, err
		}
	}
	for _, m := range c.motes {
		m.Boot()
	}
	if period := conn.RefreshPeriod(); period > 0 {
		c.eng.ScheduleAt(period, event.PriorityStartSlot, event.Action{Kind: event.KindConnectivityRefresh},
			connectivityRefreshTag)
	}
	c.eng.Terminate(s.HorizonSlots())
	logger.Infof("simulation ready: %s", s)
	return c, nil
}

func (c *Context) setupLog() error {
	c.log = simlog.New(c.eng)
	if c.s.LogFile != "" {
		sink, err := simlog.NewFileSink(c.s.LogFile)
		if err != nil {
			return err
		}
		c.log.AddSink(sink)
	}
	if c.cfg.StatsFile != "" {
		c.log.AddListener(simlog.NewStatsLog(c.cfg.StatsFile, c.s.NumMotes, c.s.SlotDuration))
	}

	m, err := metrics.New(c.cfg.Registerer)
	if err != nil {
		return errors.Wrap(err, "setting up metrics")
	}
	c.metrics = m
	c.log.AddListener(m)
	c.eng.AddObserver(m)

	c.kpi = NewKpiManager(c)
	c.log.AddListener(c.kpi)
	return nil
}

// HandleAction routes the actions of the engine: propagation and connectivity refreshes are
// network-wide, all other kinds belong to a mote.
func (c *Context) HandleAction(asn Asn, action event.Action) {
	switch action.Kind {
	case event.KindPropagate:
		c.medium.Propagate(asn)
	case event.KindConnectivityRefresh:
		c.conn.Refresh(asn)
		c.eng.ScheduleAt(asn+c.conn.RefreshPeriod(), event.PriorityStartSlot,
			event.Action{Kind: event.KindConnectivityRefresh}, connectivityRefreshTag)
	default:
		logger.AssertTrue(action.Mote >= 0 && action.Mote < len(c.motes), "action %s for unknown mote", action)
		c.motes[action.Mote].HandleAction(asn, action)
	}
}

// Run runs the simulation until the horizon, or until ctx is done or the engine is paused. A
// finished run closes the event log with the KPI summary and writes the output files; a cancelled
// run closes it with an abort marker.
func (c *Context) Run(ctx context.Context) (engine.RunStatus, error) {
	status := c.eng.Run(ctx)
	switch status {
	case engine.RunFinished, engine.RunTerminated:
		return status, c.finish()
	case engine.RunCancelled:
		return status, c.Abort("cancelled")
	default:
		return status, nil
	}
}

// RunUntil runs the simulation up to and including the given ASN.
func (c *Context) RunUntil(ctx context.Context, asn Asn) (engine.RunStatus, error) {
	c.eng.PauseAt(asn)
	return c.Run(ctx)
}

func (c *Context) finish() error {
	if c.finished {
		return nil
	}
	c.finished = true
	asn := c.eng.CurrentAsn()
	c.energyAnalyser.StoreNetworkEnergy(asn)
	kpi := c.kpi.Calculate()

	var result error
	if err := c.log.Close(simlog.SimulatorEnd, zap.Any(simlog.KeySummary, kpi)); err != nil {
		result = errors.Wrap(err, "closing simulation log")
	}
	if c.s.KpiFile != "" {
		if err := c.kpi.SaveFile(c.s.KpiFile); err != nil && result == nil {
			result = err
		}
	}
	if c.cfg.EnergyDir != "" {
		if err := c.energyAnalyser.SaveEnergyDataToFile(c.cfg.EnergyDir, "", asn, c.s.SlotDuration); err != nil &&
			result == nil {
			result = err
		}
	}
	return result
}

// Abort closes the event log with an abort marker. It does nothing once the run finished.
func (c *Context) Abort(reason string) error {
	if c.finished {
		return nil
	}
	c.finished = true
	logger.Warnf("simulation aborted at ASN %d: %s", c.eng.CurrentAsn(), reason)
	return c.log.Close(simlog.SimulatorAbort, zap.String(simlog.KeyReason, reason))
}

// StartAsync hosts the engine on a goroutine of ctx, for use through a Controller.
func (c *Context) StartAsync(ctx *progctx.ProgCtx) {
	c.eng.StartAsync(ctx)
}

// Mote returns the mote with the given id, or nil.
func (c *Context) Mote(id MoteId) *mote.Mote {
	if id < 0 || id >= len(c.motes) {
		return nil
	}
	return c.motes[id]
}

func (c *Context) Motes() []*mote.Mote {
	return c.motes
}

func (c *Context) Engine() *engine.Engine {
	return c.eng
}

func (c *Context) Log() *simlog.Log {
	return c.log
}

func (c *Context) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *Context) Settings() *settings.Settings {
	return c.s
}

func (c *Context) Connectivity() connectivity.Matrix {
	return c.conn
}

func (c *Context) Medium() *propagation.Dispatcher {
	return c.medium
}

func (c *Context) EnergyAnalyser() *energy.EnergyAnalyser {
	return c.energyAnalyser
}

func (c *Context) Kpi() *KpiManager {
	return c.kpi
}

// IsFinished tells whether the event log was closed, by the end of the run or an abort.
func (c *Context) IsFinished() bool {
	return c.finished
}
