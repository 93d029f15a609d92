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

package tsch

import (
	"math/rand"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
)

// Backoff is the TSCH CSMA-CA backoff for transmissions in shared cells.
type Backoff struct {
	minExp   int
	maxExp   int
	exponent int
	counter  int
	rng      *rand.Rand
}

func NewBackoff(minExp, maxExp int, rng *rand.Rand) *Backoff {
	logger.AssertTrue(minExp >= 0 && minExp <= maxExp, "invalid backoff exponents %d..%d", minExp, maxExp)
	return &Backoff{
		minExp:   minExp,
		maxExp:   maxExp,
		exponent: minExp,
		rng:      rng,
	}
}

// OnFailure grows the backoff window after an unacknowledged shared-cell transmission and draws a
// new counter within it.
func (b *Backoff) OnFailure() {
	if b.exponent < b.maxExp {
		b.exponent++
	}
	b.counter = b.rng.Intn(1 << b.exponent)
}

// OnSuccess resets the backoff.
func (b *Backoff) OnSuccess() {
	b.exponent = b.minExp
	b.counter = 0
}

// CanTransmit tells whether the next shared-cell opportunity may be used.
func (b *Backoff) CanTransmit() bool {
	return b.counter == 0
}

// Skip consumes a shared-cell opportunity while the counter runs.
func (b *Backoff) Skip() {
	if b.counter > 0 {
		b.counter--
	}
}

func (b *Backoff) Exponent() int {
	return b.exponent
}

func (b *Backoff) Counter() int {
	return b.counter
}
