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

// Package energy accounts the charge motes consume, slot by slot, and aggregates it per network.
package energy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type EnergyAnalyser struct {
	motes          map[MoteId]*MoteEnergy
	networkHistory []NetworkConsumption
	title          string
}

func (e *EnergyAnalyser) AddMote(id MoteId) *MoteEnergy {
	if m, ok := e.motes[id]; ok {
		return m
	}
	m := newMote(id)
	e.motes[id] = m
	return m
}

func (e *EnergyAnalyser) GetMote(id MoteId) *MoteEnergy {
	return e.motes[id]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

// StoreNetworkEnergy takes a snapshot of the average charge per mote.
func (e *EnergyAnalyser) StoreNetworkEnergy(asn Asn) {
	snapshot := NetworkConsumption{Asn: asn}
	netSize := float64(len(e.motes))
	for _, m := range e.motes {
		for a := SlotActivity(0); a < NumActivities; a++ {
			snapshot.Charge[a] += m.Charge(a) / netSize
		}
	}
	e.networkHistory = append(e.networkHistory, snapshot)
}

// TotalCharge returns the charge in uC spent by all motes.
func (e *EnergyAnalyser) TotalCharge() float64 {
	sum := 0.0
	for _, m := range e.motes {
		sum += m.TotalCharge()
	}
	return sum
}

func (e *EnergyAnalyser) sortedMoteIds() []MoteId {
	ids := make([]MoteId, 0, len(e.motes))
	for id := range e.motes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SaveEnergyDataToFile writes the per-mote and network energy tables into dir, as <name>_motes.txt
// and <name>.txt.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, asn Asn, slotDuration float64) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "creating energy directory %s", dir)
	}

	path := filepath.Join(dir, name)
	fileMotes, err := os.Create(path + "_motes.txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file")
	}
	defer fileMotes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file")
	}
	defer fileNetwork.Close()

	e.writeEnergyByMotes(fileMotes, asn, slotDuration)
	e.writeNetworkEnergy(fileNetwork, asn, slotDuration)
	logger.Debugf("energy data saved to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByMotes(w io.Writer, asn Asn, slotDuration float64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", durationMs(asn, slotDuration))
	fmt.Fprintf(w, "ID\tSleep (uC)\tIdle (uC)\tIdleNotSync (uC)\tTransmitting (uC)\tReceiving (uC)\n")
	for _, id := range e.sortedMoteIds() {
		m := e.motes[id]
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\t%f\n",
			id,
			m.Charge(ActivitySleep),
			m.Charge(ActivityIdle),
			m.Charge(ActivityIdleNotSync),
			m.Charge(ActivityTxData)+m.Charge(ActivityTxDataRxAck),
			m.Charge(ActivityRxData)+m.Charge(ActivityRxDataTxAck),
		)
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(w io.Writer, asn Asn, slotDuration float64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", durationMs(asn, slotDuration))
	fmt.Fprintf(w, "Time (ms)\tSleep (uC)\tIdle (uC)\tIdleNotSync (uC)\tTransmitting (uC)\tReceiving (uC)\n")
	for _, s := range e.networkHistory {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\t%f\n",
			durationMs(s.Asn, slotDuration),
			s.Charge[ActivitySleep],
			s.Charge[ActivityIdle],
			s.Charge[ActivityIdleNotSync],
			s.Charge[ActivityTxData]+s.Charge[ActivityTxDataRxAck],
			s.Charge[ActivityRxData]+s.Charge[ActivityRxDataTxAck],
		)
	}
}

func durationMs(asn Asn, slotDuration float64) uint64 {
	return uint64(float64(asn) * slotDuration * 1000)
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("Motes' energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.title = title
}

func NewEnergyAnalyser() *EnergyAnalyser {
	ea := &EnergyAnalyser{
		motes:          make(map[MoteId]*MoteEnergy),
		networkHistory: make([]NetworkConsumption, 0, 3600),
	}
	return ea
}
