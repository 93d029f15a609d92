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

// Package metrics exposes the counters of a simulation run as Prometheus metrics. Each run owns
// its registry, so concurrent runs never share counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
)

// Metrics bundles the Prometheus metrics of one run. It listens to the simulation event stream
// (simlog.Listener) and to the engine (engine.Observer).
type Metrics struct {
	gatherer prometheus.Gatherer

	Drops            *prometheus.CounterVec
	Transmissions    *prometheus.CounterVec
	AppPackets       *prometheus.CounterVec
	Churn            *prometheus.CounterVec
	DispatchedEvents *prometheus.CounterVec
	CurrentAsn       prometheus.Gauge
}

// New registers the metrics against reg. A nil reg gets a fresh private registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	drops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsch_drops_total",
		Help: "Dropped frames, labeled by mote and drop reason.",
	}, []string{"mote", "reason"}), "tsch_drops_total")
	if err != nil {
		return nil, err
	}

	transmissions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsch_transmissions_total",
		Help: "Completed transmissions, labeled by mote and outcome (acked, nacked, broadcast).",
	}, []string{"mote", "outcome"}), "tsch_transmissions_total")
	if err != nil {
		return nil, err
	}

	app, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "app_packets_total",
		Help: "Application packets, labeled by mote and stage (generated, reached_root).",
	}, []string{"mote", "stage"}), "app_packets_total")
	if err != nil {
		return nil, err
	}

	churn, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpl_parent_changes_total",
		Help: "Preferred parent changes, labeled by mote.",
	}, []string{"mote"}), "rpl_parent_changes_total")
	if err != nil {
		return nil, err
	}

	dispatched, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_dispatched_events_total",
		Help: "Events dispatched by the scheduler, labeled by action kind.",
	}, []string{"kind"}), "engine_dispatched_events_total")
	if err != nil {
		return nil, err
	}

	asn, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_current_asn",
		Help: "ASN of the last dispatched event.",
	}), "engine_current_asn")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:         gatherer,
		Drops:            drops,
		Transmissions:    transmissions,
		AppPackets:       app,
		Churn:            churn,
		DispatchedEvents: dispatched,
		CurrentAsn:       asn,
	}, nil
}

func moteLabel(id int) string {
	return strconv.Itoa(id)
}

// OnRecord counts the records relevant to the metrics.
func (m *Metrics) OnRecord(r *simlog.Record) {
	switch r.Type {
	case simlog.PacketDropped:
		m.Drops.WithLabelValues(moteLabel(r.Mote), r.Str(simlog.KeyReason)).Inc()
	case simlog.TschTxDone:
		outcome := "nacked"
		if r.Int(simlog.KeyDmac) < 0 {
			outcome = "broadcast"
		} else if r.Bool(simlog.KeyAcked) {
			outcome = "acked"
		}
		m.Transmissions.WithLabelValues(moteLabel(r.Mote), outcome).Inc()
	case simlog.AppTx:
		m.AppPackets.WithLabelValues(moteLabel(r.Mote), "generated").Inc()
	case simlog.AppReachesRoot:
		m.AppPackets.WithLabelValues(moteLabel(int(r.Int(simlog.KeySrcIp))), "reached_root").Inc()
	case simlog.RplChurn:
		m.Churn.WithLabelValues(moteLabel(r.Mote)).Inc()
	}
}

// OnEventDispatched counts dispatched events per kind.
func (m *Metrics) OnEventDispatched(ev *event.Event) {
	m.DispatchedEvents.WithLabelValues(ev.Action.Kind.String()).Inc()
	m.CurrentAsn.Set(float64(ev.Asn))
}

// Gatherer returns the gatherer of the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, errors.Wrapf(err, "registering %s", name)
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, errors.Wrapf(err, "registering %s", name)
	}
	return gauge, nil
}
