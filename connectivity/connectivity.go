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

// Package connectivity models which motes hear each other: per (src, dst, channel) it holds the
// packet delivery ratio and RSSI of the link.
package connectivity

import (
	"math"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Link is the state of a directed link on one channel.
type Link struct {
	Pdr  float64
	Rssi DbValue
}

// NoLink is the state of any pair of motes that cannot hear each other.
var NoLink = Link{Pdr: 0.0, Rssi: RssiMinusInfinity}

// Position is a mote location in meters.
type Position struct {
	X, Y float64
}

// Matrix is the connectivity between all ordered pairs of distinct motes, on all channels. Queries
// for unknown pairs or channels return NoLink values. Queries are safe from any goroutine.
type Matrix interface {
	NumMotes() int
	Channels() []ChannelId
	GetLink(src, dst MoteId, ch ChannelId) Link
	GetPdr(src, dst MoteId, ch ChannelId) float64
	GetRssi(src, dst MoteId, ch ChannelId) DbValue
	Position(id MoteId) Position

	// RefreshPeriod is the number of slots between refreshes, or 0 for a static matrix.
	RefreshPeriod() Asn
	// Refresh brings the matrix to the state at the given ASN. Static matrices ignore it.
	Refresh(asn Asn)
}

// New creates the matrix configured by cfg.
func New(cfg *settings.Settings, rng *rand.Rand) (Matrix, error) {
	switch cfg.ConnClass {
	case settings.ConnLinear:
		return NewLinear(cfg.NumMotes, HoppingChannels(cfg.NumChans)), nil
	case settings.ConnFullyMeshed:
		return NewFullyMeshed(cfg.NumMotes, HoppingChannels(cfg.NumChans)), nil
	case settings.ConnRandom:
		return NewRandom(cfg, rng)
	case settings.ConnK7:
		k7, err := LoadK7(cfg)
		if err != nil {
			return nil, err
		}
		return k7, nil
	default:
		return nil, settings.Invalid("conn_class", "unknown connectivity class %q", cfg.ConnClass)
	}
}

// Neighbors returns the motes that id hears with a pdr of at least minPdr on some channel.
func Neighbors(m Matrix, id MoteId, minPdr float64) []MoteId {
	var res []MoteId
	for other := 0; other < m.NumMotes(); other++ {
		if other == id {
			continue
		}
		for _, ch := range m.Channels() {
			if pdr := m.GetPdr(other, id, ch); pdr > 0 && pdr >= minPdr {
				res = append(res, other)
				break
			}
		}
	}
	return res
}

// table is the dense connectivity store shared by all matrix classes.
type table struct {
	mu        sync.RWMutex
	numMotes  int
	channels  []ChannelId
	links     []Link
	positions []Position
}

func newTable(numMotes int, channels []ChannelId) *table {
	t := &table{
		numMotes:  numMotes,
		channels:  channels,
		positions: make([]Position, numMotes),
	}
	t.links = t.newLinks()
	return t
}

func (t *table) newLinks() []Link {
	links := make([]Link, t.numMotes*t.numMotes*len(t.channels))
	for i := range links {
		links[i] = NoLink
	}
	return links
}

func (t *table) index(src, dst MoteId, ch ChannelId) (int, bool) {
	chIdx := ch - t.channels[0]
	if src == dst || src < 0 || dst < 0 || src >= t.numMotes || dst >= t.numMotes ||
		chIdx < 0 || chIdx >= len(t.channels) {
		return 0, false
	}
	return (src*t.numMotes+dst)*len(t.channels) + chIdx, true
}

func (t *table) NumMotes() int {
	return t.numMotes
}

func (t *table) Channels() []ChannelId {
	return t.channels
}

func (t *table) GetLink(src, dst MoteId, ch ChannelId) Link {
	idx, ok := t.index(src, dst, ch)
	if !ok {
		return NoLink
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.links[idx]
}

func (t *table) GetPdr(src, dst MoteId, ch ChannelId) float64 {
	return t.GetLink(src, dst, ch).Pdr
}

func (t *table) GetRssi(src, dst MoteId, ch ChannelId) DbValue {
	return t.GetLink(src, dst, ch).Rssi
}

func (t *table) Position(id MoteId) Position {
	if id < 0 || id >= t.numMotes {
		return Position{}
	}
	return t.positions[id]
}

func (t *table) RefreshPeriod() Asn {
	return 0
}

func (t *table) Refresh(Asn) {
}

// set writes a link into links, which is either the live table during construction or a
// replacement being built for swap.
func (t *table) set(links []Link, src, dst MoteId, ch ChannelId, l Link) {
	idx, ok := t.index(src, dst, ch)
	if ok {
		links[idx] = clampLink(l)
	}
}

func (t *table) setAllChannels(links []Link, src, dst MoteId, l Link) {
	for _, ch := range t.channels {
		t.set(links, src, dst, ch, l)
	}
}

// swap replaces all links at once; readers see either the old or the new table.
func (t *table) swap(links []Link) {
	t.mu.Lock()
	t.links = links
	t.mu.Unlock()
}

func (t *table) snapshot() []Link {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Link(nil), t.links...)
}

func clampLink(l Link) Link {
	if l.Pdr < 0 || math.IsNaN(l.Pdr) {
		l.Pdr = 0
	} else if l.Pdr > 1 {
		l.Pdr = 1
	}
	if l.Rssi < RssiMinusInfinity || math.IsNaN(l.Rssi) {
		l.Rssi = RssiMinusInfinity
	} else if l.Rssi > RssiMax {
		l.Rssi = RssiMax
	}
	return l
}

var errNoPlacement = errors.New("unable to place mote")
