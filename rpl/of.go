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

package rpl

import (
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
)

const (
	RootRank                     uint16 = 256
	MinHopRankIncrease                  = 256
	RankInfinite                 uint16 = 0xffff
	DefaultParentSwitchThreshold        = 640

	// below this many transmissions the ETX of a link is not measured yet
	etxMinNumTx     = 10
	maxRankIncrease = 7 * MinHopRankIncrease
)

// ObjectiveFunction computes the rank increase of a path through a neighbor.
type ObjectiveFunction interface {
	Name() string
	RankIncrease(n *Neighbor) int
}

// NewObjectiveFunction returns the objective function of the given name, OF0 by default.
func NewObjectiveFunction(name string) ObjectiveFunction {
	if name == settings.OfMinHop {
		return MinHop{}
	}
	return Of0{}
}

// MinHop counts hops: every link adds MinHopRankIncrease.
type MinHop struct{}

func (MinHop) Name() string {
	return settings.OfMinHop
}

func (MinHop) RankIncrease(*Neighbor) int {
	return MinHopRankIncrease
}

// Of0 is the objective function zero with an ETX based step of rank.
type Of0 struct{}

func (Of0) Name() string {
	return settings.OfZero
}

// Etx returns the expected transmission count of the link to n.
func (Of0) Etx(n *Neighbor) float64 {
	if n.NumTx < etxMinNumTx || n.NumTxAck == 0 {
		return 1.0 / n.PdrEstimate
	}
	return float64(n.NumTx) / float64(n.NumTxAck)
}

func (of Of0) RankIncrease(n *Neighbor) int {
	inc := int((3*of.Etx(n) - 2) * MinHopRankIncrease)
	if inc < MinHopRankIncrease {
		inc = MinHopRankIncrease
	} else if inc > maxRankIncrease {
		inc = maxRankIncrease
	}
	return inc
}
