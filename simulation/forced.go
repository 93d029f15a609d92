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

package simulation

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// forceInitialState starts the network converged: every mote reachable from the root is synced
// and joined, has the lowest-rank neighbor as parent, and a dedicated cell pair to it. The root
// knows all the DAO routes.
func (c *Context) forceInitialState() error {
	root := c.motes[RootMoteId]
	root.ForceSync(RootMoteId)
	order, parents := buildTree(c.conn)

	slotOffset := 1
	for _, id := range order {
		m := c.motes[id]
		if id == RootMoteId {
			continue
		}
		parent := parents[id]
		m.ForceSync(parent)
		m.ForceJoined()
		m.ForceParent(parent, c.motes[parent].Dodag().Rank())
		root.ForceDao(id, parent)

		if slotOffset >= c.s.SlotframeLength {
			logger.Warnf("no slot offset left to force a dedicated cell from %d to %d", id, parent)
			continue
		}
		chOffset := slotOffset % c.s.NumChans
		if err := m.ForceCell(tsch.Cell{SlotOffset: slotOffset, ChannelOffset: chOffset,
			Options: tsch.OptionTx, Neighbor: parent}); err != nil {
			return errors.Wrapf(err, "forcing TX cell of mote %d", id)
		}
		if err := c.motes[parent].ForceCell(tsch.Cell{SlotOffset: slotOffset, ChannelOffset: chOffset,
			Options: tsch.OptionRx, Neighbor: id}); err != nil {
			return errors.Wrapf(err, "forcing RX cell of mote %d", parent)
		}
		c.motes[parent].Dodag().AddChild(id)
		slotOffset++
	}
	if len(order) < len(c.motes) {
		logger.Warnf("%d motes cannot reach the root and start unsynchronized", len(c.motes)-len(order))
	}
	return nil
}

// buildTree walks the connectivity breadth-first from the root. A mote's parent is its neighbor
// closest to the root, the lowest id on ties. Motes are returned by depth then id, parents first.
func buildTree(conn connectivity.Matrix) ([]MoteId, map[MoteId]MoteId) {
	depth := map[MoteId]int{RootMoteId: 0}
	parents := map[MoteId]MoteId{}
	queue := []MoteId{RootMoteId}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, nb := range connectivity.Neighbors(conn, cur, 0) {
			if _, seen := depth[nb]; !seen {
				depth[nb] = depth[cur] + 1
				parents[nb] = cur
				queue = append(queue, nb)
			}
		}
	}

	for _, id := range queue[1:] {
		for _, nb := range connectivity.Neighbors(conn, id, 0) {
			if d, ok := depth[nb]; ok && d == depth[id]-1 && nb < parents[id] {
				parents[id] = nb
			}
		}
	}

	sort.Slice(queue, func(i, j int) bool {
		if depth[queue[i]] != depth[queue[j]] {
			return depth[queue[i]] < depth[queue[j]]
		}
		return queue[i] < queue[j]
	})
	return queue, parents
}
