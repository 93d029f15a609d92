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

import . "github.com/atiselsts/6tisch-simulator-sub000/types"

type KpiTimeAsn struct {
	StartAsn Asn `json:"start"`
	EndAsn   Asn `json:"end"`
	Period   Asn `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

type KpiLatency struct {
	MeanSec   float64 `json:"mean_s"`
	StdDevSec float64 `json:"stddev_s"`
	MaxSec    float64 `json:"max_s"`
}

type KpiApp struct {
	Generated    int        `json:"generated"`
	ReachedRoot  int        `json:"reached_root"`
	Pdr          float64    `json:"pdr"`
	Latency      KpiLatency `json:"latency"`
	MeanHopCount float64    `json:"mean_hop_count"`
}

type KpiMote struct {
	App          KpiApp  `json:"app"`
	Drops        int     `json:"drops"`
	ChargeUc     float64 `json:"charge_uC"`
	JoinAsn      *Asn    `json:"join_asn,omitempty"`
	NumDesyncs   int     `json:"desyncs"`
	ParentChange int     `json:"parent_changes"`
}

type KpiNetwork struct {
	App      KpiApp         `json:"app"`
	Drops    map[string]int `json:"drops"`
	ChargeUc float64        `json:"charge_uC"`
	Joined   int            `json:"joined"`
}

type Kpi struct {
	FileTime string              `json:"created"`
	Status   string              `json:"status"`
	TimeAsn  KpiTimeAsn          `json:"time_asn"`
	TimeSec  KpiTimeSec          `json:"time_sec"`
	Network  KpiNetwork          `json:"network"`
	Motes    map[MoteId]*KpiMote `json:"motes"`
}
