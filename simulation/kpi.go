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

package simulation

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// moteSamples accumulates what the event stream tells about one mote.
type moteSamples struct {
	generated    int
	latenciesSec []float64
	hopCounts    []float64
	drops        int
	joinAsn      *Asn
	desyncs      int
	churn        int
}

// KpiManager computes the key performance indicators of a run from its event stream.
type KpiManager struct {
	ctx      *Context
	startAsn Asn
	motes    map[MoteId]*moteSamples
	drops    map[string]int
	data     *Kpi
}

// NewKpiManager creates the KPI bookkeeper of a context. It must be added as a simlog listener.
func NewKpiManager(ctx *Context) *KpiManager {
	logger.AssertNotNil(ctx)
	return &KpiManager{
		ctx:   ctx,
		motes: map[MoteId]*moteSamples{},
		drops: map[string]int{},
		data:  &Kpi{Status: "ok"},
	}
}

func (km *KpiManager) mote(id MoteId) *moteSamples {
	ms, ok := km.motes[id]
	if !ok {
		ms = &moteSamples{}
		km.motes[id] = ms
	}
	return ms
}

// OnRecord accounts a simulation event.
func (km *KpiManager) OnRecord(r *simlog.Record) {
	switch r.Type {
	case simlog.SimulatorStart:
		km.startAsn = r.Asn
	case simlog.AppTx:
		km.mote(r.Mote).generated++
	case simlog.AppReachesRoot:
		ms := km.mote(MoteId(r.Int(simlog.KeySrcIp)))
		created := Asn(r.Int(simlog.KeyCreatedAsn))
		ms.latenciesSec = append(ms.latenciesSec, float64(r.Asn-created)*km.ctx.s.SlotDuration)
		ms.hopCounts = append(ms.hopCounts, float64(r.Int(simlog.KeyHopCount)))
	case simlog.PacketDropped:
		km.mote(r.Mote).drops++
		km.drops[r.Str(simlog.KeyReason)]++
	case simlog.SecjoinJoined:
		ms := km.mote(r.Mote)
		if ms.joinAsn == nil {
			asn := r.Asn
			ms.joinAsn = &asn
		}
	case simlog.TschDesync:
		km.mote(r.Mote).desyncs++
	case simlog.RplChurn:
		km.mote(r.Mote).churn++
	}
}

// Calculate computes the KPIs up to the current ASN.
func (km *KpiManager) Calculate() *Kpi {
	s := km.ctx.s
	endAsn := km.ctx.eng.CurrentAsn()
	d := km.data
	d.TimeAsn = KpiTimeAsn{StartAsn: km.startAsn, EndAsn: endAsn, Period: endAsn - km.startAsn}
	d.TimeSec = KpiTimeSec{
		StartTimeSec: float64(km.startAsn) * s.SlotDuration,
		EndTimeSec:   float64(endAsn) * s.SlotDuration,
		PeriodSec:    float64(endAsn-km.startAsn) * s.SlotDuration,
	}
	if !km.ctx.eng.IsTerminated() {
		d.Status = "partial: the run did not reach its horizon"
	}

	d.Motes = make(map[MoteId]*KpiMote, len(km.ctx.motes))
	var allLatencies, allHops []float64
	generated, joined := 0, 0
	for _, m := range km.ctx.motes {
		ms := km.mote(m.Id)
		mk := &KpiMote{
			App:          appKpi(ms.generated, ms.latenciesSec, ms.hopCounts),
			Drops:        ms.drops,
			ChargeUc:     m.Energy().TotalCharge(),
			JoinAsn:      ms.joinAsn,
			NumDesyncs:   ms.desyncs,
			ParentChange: ms.churn,
		}
		d.Motes[m.Id] = mk
		if !m.IsRoot() {
			generated += ms.generated
			allLatencies = append(allLatencies, ms.latenciesSec...)
			allHops = append(allHops, ms.hopCounts...)
		}
		if m.IsJoined() {
			joined++
		}
	}

	d.Network = KpiNetwork{
		App:      appKpi(generated, allLatencies, allHops),
		Drops:    make(map[string]int, len(km.drops)),
		ChargeUc: km.ctx.energyAnalyser.TotalCharge(),
		Joined:   joined,
	}
	for reason, n := range km.drops {
		d.Network.Drops[reason] = n
	}
	return d
}

func appKpi(generated int, latenciesSec, hopCounts []float64) KpiApp {
	app := KpiApp{
		Generated:   generated,
		ReachedRoot: len(latenciesSec),
	}
	if generated > 0 {
		app.Pdr = float64(app.ReachedRoot) / float64(generated)
	}
	if len(latenciesSec) > 0 {
		app.Latency.MeanSec, app.Latency.StdDevSec = stat.MeanStdDev(latenciesSec, nil)
		if math.IsNaN(app.Latency.StdDevSec) {
			app.Latency.StdDevSec = 0
		}
		app.Latency.MaxSec = floats.Max(latenciesSec)
		app.MeanHopCount = stat.Mean(hopCounts, nil)
	}
	return app
}

// DropReasons returns the drop reasons seen so far, sorted.
func (km *KpiManager) DropReasons() []string {
	reasons := make([]string, 0, len(km.drops))
	for r := range km.drops {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}

// SaveFile computes the KPIs and writes them as indented JSON.
func (km *KpiManager) SaveFile(fn string) error {
	data := km.Calculate()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshaling KPI data")
	}
	if err = os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "writing KPI file %s", fn)
	}
	logger.Debugf("KPI file %s written", fn)
	return nil
}
