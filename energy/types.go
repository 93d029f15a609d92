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
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// SlotActivity is what the radio of a mote did during one slot.
type SlotActivity int

const (
	ActivitySleep SlotActivity = iota
	ActivityIdle
	ActivityIdleNotSync
	ActivityTxData
	ActivityTxDataRxAck
	ActivityRxData
	ActivityRxDataTxAck
	NumActivities
)

var activityNames = [NumActivities]string{
	ActivitySleep:       "sleep",
	ActivityIdle:        "idle",
	ActivityIdleNotSync: "idleNotSync",
	ActivityTxData:      "txData",
	ActivityTxDataRxAck: "txDataRxAck",
	ActivityRxData:      "rxData",
	ActivityRxDataTxAck: "rxDataTxAck",
}

func (a SlotActivity) String() string {
	if a >= 0 && a < NumActivities {
		return activityNames[a]
	}
	return "unknown"
}

/*
 * Charge consumed per slot by activity, for a 10 ms slot of an OpenMote-class radio.
 * Charge in microcoulombs (uC).
 */
var activityCharge = [NumActivities]float64{
	ActivitySleep:       0.0,
	ActivityIdle:        6.4,
	ActivityIdleNotSync: 45.0,
	ActivityTxData:      49.5,
	ActivityTxDataRxAck: 54.5,
	ActivityRxData:      22.6,
	ActivityRxDataTxAck: 32.6,
}

// Charge returns the charge in uC of one slot spent in the activity.
func (a SlotActivity) Charge() float64 {
	return activityCharge[a]
}

// RadioState returns the dominant radio state of the activity.
func (a SlotActivity) RadioState() RadioStates {
	switch a {
	case ActivitySleep:
		return RadioSleep
	case ActivityTxData, ActivityTxDataRxAck:
		return RadioTx
	default:
		return RadioRx
	}
}

const (
	// ComputePeriod is the number of slots between two network energy snapshots (30 s at 10 ms).
	ComputePeriod Asn = 3000
)

// NetworkConsumption is the average charge per mote, by activity, at a given ASN.
type NetworkConsumption struct {
	Asn    Asn
	Charge [NumActivities]float64
}

// Total is the average total charge per mote.
func (nc *NetworkConsumption) Total() float64 {
	sum := 0.0
	for _, c := range nc.Charge {
		sum += c
	}
	return sum
}
