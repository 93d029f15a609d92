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
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const (
	// a neighbor counts toward the placement requirement from this PDR upward
	randomNeighborMinPdr = 0.5
	maxPlacementAttempts = 10000
)

// NewRandom places motes in a square and derives the links from a path loss model. Mote 0 sits in
// the center; each following mote is placed at random until it has enough good neighbors among the
// motes placed before it. Positions listed in the topology are used as is.
func NewRandom(cfg *settings.Settings, rng *rand.Rand) (Matrix, error) {
	logger.AssertNotNil(rng)
	t := newTable(cfg.NumMotes, HoppingChannels(cfg.NumChans))
	params := NewPathlossParams(cfg.ConnRandomPathlossModel)
	side := cfg.ConnRandomSquareSide * 1000.0

	fixed := make(map[MoteId]Position, len(cfg.Topology))
	for _, p := range cfg.Topology {
		fixed[p.Id] = Position{X: p.Pos[0], Y: p.Pos[1]}
	}

	linkBetween := func(a, b Position) Link {
		rssi := ComputeRssi(distance(a, b), defaultTxPowerDbm, params)
		return Link{Pdr: RssiToPdr(rssi), Rssi: rssi}
	}

	for id := 0; id < cfg.NumMotes; id++ {
		if pos, ok := fixed[id]; ok {
			t.positions[id] = pos
			continue
		}
		if id == RootMoteId {
			t.positions[id] = Position{X: side / 2, Y: side / 2}
			continue
		}

		required := cfg.ConnRandomInitMinNeighbors
		if required > id {
			required = id
		}
		placed := false
		for attempt := 0; attempt < maxPlacementAttempts && !placed; attempt++ {
			pos := Position{X: rng.Float64() * side, Y: rng.Float64() * side}
			numGood := 0
			for other := 0; other < id; other++ {
				if linkBetween(pos, t.positions[other]).Pdr >= randomNeighborMinPdr {
					numGood++
				}
			}
			if numGood >= required {
				t.positions[id] = pos
				placed = true
			}
		}
		if !placed {
			return nil, errors.Wrapf(settings.Invalid("conn_random_square_side",
				"square too large to give mote %d %d neighbors", id, required), errNoPlacement.Error())
		}
	}

	for src := 0; src < cfg.NumMotes; src++ {
		for dst := src + 1; dst < cfg.NumMotes; dst++ {
			l := linkBetween(t.positions[src], t.positions[dst])
			if l.Pdr <= 0 {
				continue
			}
			t.setAllChannels(t.links, src, dst, l)
			t.setAllChannels(t.links, dst, src, l)
		}
	}
	logger.Debugf("random topology of %d motes placed in a %.0fm square", cfg.NumMotes, side)
	return t, nil
}

func distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
