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

package connectivity

import (
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const (
	staticPdr             = 1.0
	staticRssi    DbValue = -60.0
	staticSpacing         = 10.0 // meters between consecutive motes of a static matrix
)

// NewLinear creates a chain where mote i hears only motes i-1 and i+1, perfectly, on all channels.
func NewLinear(numMotes int, channels []ChannelId) Matrix {
	t := newTable(numMotes, channels)
	for i := 0; i < numMotes; i++ {
		t.positions[i] = Position{X: float64(i) * staticSpacing}
		if i > 0 {
			t.setAllChannels(t.links, i, i-1, Link{staticPdr, staticRssi})
			t.setAllChannels(t.links, i-1, i, Link{staticPdr, staticRssi})
		}
	}
	return t
}

// NewFullyMeshed creates a network where every mote hears every other mote perfectly.
func NewFullyMeshed(numMotes int, channels []ChannelId) Matrix {
	t := newTable(numMotes, channels)
	for i := 0; i < numMotes; i++ {
		t.positions[i] = Position{X: float64(i) * staticSpacing}
		for j := 0; j < numMotes; j++ {
			if i != j {
				t.setAllChannels(t.links, i, j, Link{staticPdr, staticRssi})
			}
		}
	}
	return t
}
