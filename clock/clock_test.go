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

package clock

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func TestDriftAccumulatesLinearly(t *testing.T) {
	c := &Clock{driftPpm: 20, slotDuration: 0.01}
	assert.Equal(t, 0.0, c.Drift(0))

	// per-slot accumulation equals the closed form
	sum := 0.0
	for asn := Asn(1); asn <= 1000; asn++ {
		sum += c.slotDuration * c.driftPpm * 1e-6
	}
	assert.InDelta(t, sum, c.Drift(1000), 1e-12)
	assert.InDelta(t, 200e-6, c.Drift(1000), 1e-12)
	assert.InDelta(t, 200.0, c.DriftUs(1000), 1e-6)
	assert.InDelta(t, 10.0+200e-6, c.LocalTime(1000), 1e-12)
}

func TestSyncResetsDrift(t *testing.T) {
	c := &Clock{driftPpm: -30, slotDuration: 0.01}
	assert.Less(t, c.Drift(500), 0.0)
	c.Sync(500)
	assert.Equal(t, Asn(500), c.LastSyncAsn())
	assert.Equal(t, 0.0, c.Drift(500))
	assert.Equal(t, 0.0, c.Drift(400))
	assert.InDelta(t, -30e-6*0.01*100, c.Drift(600), 1e-15)
	assert.InDelta(t, 30.0*0.01*100, c.DriftUs(600), 1e-9)
}

func TestNewDriftWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		c := New(rng, 30, 0.01)
		assert.True(t, c.DriftPpm() >= -30 && c.DriftPpm() <= 30)
	}
	ref := NewReference(0.01)
	assert.Equal(t, 0.0, ref.Drift(1e6))
}
