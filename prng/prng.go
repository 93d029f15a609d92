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

package prng

import (
	"math/rand"
	"time"
)

type RandomSeed int64

// Generators holds the seeded random generators of one simulation run, split per concern so that
// changing the draws of one concern (e.g. topology) does not perturb the others (e.g. propagation).
type Generators struct {
	rootSeed          int64
	moteSeedGenerator *rand.Rand
	propagation       *rand.Rand
	topology          *rand.Rand
	unit              *rand.Rand
}

// New creates the generators of a run, either with a fixed PRNG seed (rootSeed != 0) or a 'random'
// time-based PRNG seed (if rootSeed == 0).
func New(rootSeed int64) *Generators {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	seeder := rand.New(rand.NewSource(rootSeed))

	return &Generators{
		rootSeed:          rootSeed,
		moteSeedGenerator: rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
		propagation:       rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
		topology:          rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
		unit:              rand.New(rand.NewSource(rootSeed + seeder.Int63n(1e10))),
	}
}

// RootSeed returns the seed the generators were derived from.
func (g *Generators) RootSeed() int64 {
	return g.rootSeed
}

// NewMoteRandomSeed generates unique random-seeds for newly created motes.
func (g *Generators) NewMoteRandomSeed() RandomSeed {
	return RandomSeed(g.moteSeedGenerator.Int63())
}

// NewMoteRand creates the private generator of a newly created mote.
func (g *Generators) NewMoteRand() *rand.Rand {
	return rand.New(rand.NewSource(int64(g.NewMoteRandomSeed())))
}

// Propagation is the generator for per-slot transmission success draws.
func (g *Generators) Propagation() *rand.Rand {
	return g.propagation
}

// Topology is the generator for mote placement.
func (g *Generators) Topology() *rand.Rand {
	return g.topology
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func (g *Generators) NewUnitRandom() float64 {
	return g.unit.Float64()
}
