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

// Package rpl implements RPL routing: objective functions, preferred parent selection and, at the
// root, the DAO graph providing source routes for downward traffic.
package rpl

import (
	"sort"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Neighbor is what a mote knows about a neighbor from its DIOs and the link statistics.
type Neighbor struct {
	Id          MoteId
	Rank        uint16
	NumTx       int
	NumTxAck    int
	PdrEstimate float64
}

// Dodag is the RPL state of a mote.
type Dodag struct {
	id        MoteId
	isRoot    bool
	of        ObjectiveFunction
	threshold int
	rank      uint16
	parent    MoteId
	neighbors map[MoteId]*Neighbor
	children  map[MoteId]struct{}
}

func NewDodag(id MoteId, isRoot bool, of ObjectiveFunction, parentSwitchThreshold int) *Dodag {
	d := &Dodag{
		id:        id,
		isRoot:    isRoot,
		of:        of,
		threshold: parentSwitchThreshold,
		rank:      RankInfinite,
		parent:    InvalidMoteId,
		neighbors: make(map[MoteId]*Neighbor),
		children:  make(map[MoteId]struct{}),
	}
	if isRoot {
		d.rank = RootRank
	}
	return d
}

func (d *Dodag) IsRoot() bool {
	return d.isRoot
}

func (d *Dodag) Rank() uint16 {
	return d.rank
}

// DagRank is the rank in hops above the root.
func (d *Dodag) DagRank() int {
	return int(d.rank) / MinHopRankIncrease
}

// HasRank tells whether the mote is part of the DODAG.
func (d *Dodag) HasRank() bool {
	return d.rank != RankInfinite
}

// Parent returns the preferred parent, or InvalidMoteId.
func (d *Dodag) Parent() MoteId {
	return d.parent
}

func (d *Dodag) ObjectiveFunction() ObjectiveFunction {
	return d.of
}

func (d *Dodag) neighbor(id MoteId) *Neighbor {
	n, ok := d.neighbors[id]
	if !ok {
		n = &Neighbor{Id: id, Rank: RankInfinite, PdrEstimate: 1.0}
		d.neighbors[id] = n
	}
	return n
}

// Neighbor returns what is known about a neighbor.
func (d *Dodag) Neighbor(id MoteId) (*Neighbor, bool) {
	n, ok := d.neighbors[id]
	return n, ok
}

// Neighbors returns the known neighbors ordered by id.
func (d *Dodag) Neighbors() []*Neighbor {
	res := make([]*Neighbor, 0, len(d.neighbors))
	for _, n := range d.neighbors {
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Id < res[j].Id
	})
	return res
}

// AddChild records a neighbor routing through this mote.
func (d *Dodag) AddChild(id MoteId) {
	d.children[id] = struct{}{}
}

func (d *Dodag) RemoveChild(id MoteId) {
	delete(d.children, id)
}

func (d *Dodag) IsChild(id MoteId) bool {
	_, ok := d.children[id]
	return ok
}

func (d *Dodag) rankThrough(n *Neighbor) int {
	return int(n.Rank) + d.of.RankIncrease(n)
}

// ReceiveDio processes a DIO advertising rank from src, and returns whether the preferred parent
// changed. A neighbor advertising a rank not lower than this mote's, or routing through this mote,
// is never made parent.
func (d *Dodag) ReceiveDio(src MoteId, rank uint16) bool {
	n := d.neighbor(src)
	n.Rank = rank
	if d.isRoot {
		return false
	}
	return d.selectParent()
}

func (d *Dodag) isCandidate(n *Neighbor) bool {
	if n.Rank == RankInfinite {
		return false
	}
	if n.Id == d.parent {
		return true
	}
	return n.Rank < d.rank && !d.IsChild(n.Id)
}

func (d *Dodag) selectParent() bool {
	var best *Neighbor
	bestRank := 0
	for _, n := range d.Neighbors() {
		if !d.isCandidate(n) {
			continue
		}
		if r := d.rankThrough(n); best == nil || r < bestRank {
			best, bestRank = n, r
		}
	}

	old := d.parent
	switch {
	case best == nil:
		d.parent = InvalidMoteId
	case d.parent == InvalidMoteId:
		d.parent = best.Id
	case best.Id != d.parent:
		cur := d.neighbors[d.parent]
		if !d.isCandidate(cur) || bestRank+d.threshold < d.rankThrough(cur) {
			d.parent = best.Id
		}
	}
	d.updateRank()
	return d.parent != old
}

func (d *Dodag) updateRank() {
	if d.isRoot {
		return
	}
	if d.parent == InvalidMoteId {
		d.rank = RankInfinite
		return
	}
	r := d.rankThrough(d.neighbors[d.parent])
	if r >= int(RankInfinite) {
		r = int(RankInfinite) - 1
	}
	d.rank = uint16(r)
}

// RecordTx accounts a unicast transmission to a neighbor, and updates the rank through it.
func (d *Dodag) RecordTx(neighbor MoteId, acked bool) {
	n := d.neighbor(neighbor)
	n.NumTx++
	if acked {
		n.NumTxAck++
	}
	if neighbor == d.parent {
		d.updateRank()
	}
}

// ForceParent installs a parent advertising parentRank, as if selected from its DIO.
func (d *Dodag) ForceParent(parent MoteId, parentRank uint16) {
	if d.isRoot {
		return
	}
	d.neighbor(parent).Rank = parentRank
	d.parent = parent
	d.updateRank()
}

// Detach leaves the DODAG, forgetting the neighbors.
func (d *Dodag) Detach() {
	if d.isRoot {
		return
	}
	d.parent = InvalidMoteId
	d.rank = RankInfinite
	d.neighbors = make(map[MoteId]*Neighbor)
	d.children = make(map[MoteId]struct{})
}
