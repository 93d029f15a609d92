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

// Package clock models the drift of a mote's clock relative to its timesource.
package clock

import (
	"math"
	"math/rand"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Clock is a drifting mote clock. Drift accumulates linearly since the last synchronization.
type Clock struct {
	driftPpm     float64
	lastSyncAsn  Asn
	slotDuration float64
}

// New creates a clock with a drift rate drawn uniformly in [-maxDriftPpm, +maxDriftPpm].
func New(rng *rand.Rand, maxDriftPpm float64, slotDuration float64) *Clock {
	return &Clock{
		driftPpm:     (rng.Float64()*2 - 1) * maxDriftPpm,
		slotDuration: slotDuration,
	}
}

// NewReference creates a clock that does not drift, as the root's.
func NewReference(slotDuration float64) *Clock {
	return &Clock{slotDuration: slotDuration}
}

// DriftPpm returns the drift rate.
func (c *Clock) DriftPpm() float64 {
	return c.driftPpm
}

// Drift returns the accumulated drift in seconds at asn.
func (c *Clock) Drift(asn Asn) float64 {
	if asn <= c.lastSyncAsn {
		return 0
	}
	return float64(asn-c.lastSyncAsn) * c.slotDuration * c.driftPpm * 1e-6
}

// DriftUs returns the absolute accumulated drift in microseconds at asn.
func (c *Clock) DriftUs(asn Asn) float64 {
	return math.Abs(c.Drift(asn)) * 1e6
}

// Sync resets the accumulated drift.
func (c *Clock) Sync(asn Asn) {
	c.lastSyncAsn = asn
}

// LastSyncAsn returns the ASN of the last synchronization.
func (c *Clock) LastSyncAsn() Asn {
	return c.lastSyncAsn
}

// LocalTime returns the time in seconds the mote believes it is at asn.
func (c *Clock) LocalTime(asn Asn) float64 {
	return float64(asn)*c.slotDuration + c.Drift(asn)
}
