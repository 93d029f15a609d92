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

package energy

import (
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// MoteEnergy accounts the slots a mote spent in each activity.
type MoteEnergy struct {
	moteId  MoteId
	slots   [NumActivities]uint64
	state   RadioStates
	lastAsn Asn
}

// RecordSlot accounts one slot of activity at asn.
func (m *MoteEnergy) RecordSlot(asn Asn, activity SlotActivity) {
	logger.AssertTrue(activity >= 0 && activity < NumActivities, "unknown slot activity %d", activity)
	m.slots[activity]++
	m.state = activity.RadioState()
	m.lastAsn = asn
}

// RecordSleep accounts n sleeping slots, typically those skipped between two active cells.
func (m *MoteEnergy) RecordSleep(n uint64) {
	m.slots[ActivitySleep] += n
}

// Slots returns the number of slots spent in an activity.
func (m *MoteEnergy) Slots(activity SlotActivity) uint64 {
	return m.slots[activity]
}

// Charge returns the charge in uC spent in an activity.
func (m *MoteEnergy) Charge(activity SlotActivity) float64 {
	return float64(m.slots[activity]) * activity.Charge()
}

// TotalCharge returns the total charge in uC spent by the mote.
func (m *MoteEnergy) TotalCharge() float64 {
	sum := 0.0
	for a := SlotActivity(0); a < NumActivities; a++ {
		sum += m.Charge(a)
	}
	return sum
}

// RadioState returns the radio state of the last recorded slot.
func (m *MoteEnergy) RadioState() RadioStates {
	return m.state
}

// LastActiveAsn returns the ASN of the last recorded slot.
func (m *MoteEnergy) LastActiveAsn() Asn {
	return m.lastAsn
}

func newMote(id MoteId) *MoteEnergy {
	return &MoteEnergy{
		moteId: id,
		state:  RadioDisabled,
	}
}
