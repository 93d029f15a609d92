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

package mote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/energy"
	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/prng"
	"github.com/atiselsts/6tisch-simulator-sub000/propagation"
	"github.com/atiselsts/6tisch-simulator-sub000/rpl"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type testNet struct {
	eng     *engine.Engine
	log     *simlog.Log
	disp    *propagation.Dispatcher
	motes   []*Mote
	records []*simlog.Record
}

func (n *testNet) HandleAction(asn Asn, action event.Action) {
	if action.Kind == event.KindPropagate {
		n.disp.Propagate(asn)
		return
	}
	n.motes[action.Mote].HandleAction(asn, action)
}

func testSettings(numMotes int) *settings.Settings {
	s := settings.Default()
	s.NumMotes = numMotes
	s.RandomSeed = 1
	s.NumChans = 1
	s.AppPkPeriod = 0
	s.ClockMaxDriftPpm = 0
	return s
}

func newTestNet(t *testing.T, s *settings.Settings) *testNet {
	require.NoError(t, s.Validate())
	n := &testNet{eng: engine.New()}
	n.log = simlog.New(n.eng)
	n.log.AddListener(simlog.ListenerFunc(func(r *simlog.Record) {
		n.records = append(n.records, r)
	}))

	gens := prng.New(s.RandomSeed)
	conn := connectivity.NewLinear(s.NumMotes, HoppingChannels(s.NumChans))
	interf, err := propagation.NewInterference(s.ConnInterference)
	require.NoError(t, err)
	n.disp = propagation.NewDispatcher(n.eng, conn, interf, gens.Propagation(), n.log)

	env := &Env{
		Settings: s,
		Sched:    n.eng,
		Log:      n.log,
		Medium:   n.disp,
		Conn:     conn,
		Energy:   energy.NewEnergyAnalyser(),
	}
	for id := 0; id < s.NumMotes; id++ {
		m := New(id, env, gens.NewMoteRand())
		n.disp.Attach(id, m)
		n.motes = append(n.motes, m)
	}
	for kind := event.KindActiveCell; kind < event.KindTerminate; kind++ {
		if kind != event.KindConnectivityRefresh {
			n.eng.RegisterHandler(kind, n)
		}
	}
	return n
}

func (n *testNet) runUntil(asn Asn) engine.RunStatus {
	n.eng.PauseAt(asn)
	return n.eng.Run(context.Background())
}

func (n *testNet) find(typ simlog.Type, mote MoteId) []*simlog.Record {
	var res []*simlog.Record
	for _, r := range n.records {
		if r.Type == typ && r.Mote == mote {
			res = append(res, r)
		}
	}
	return res
}

func TestRootBoot(t *testing.T) {
	n := newTestNet(t, testSettings(1))
	root := n.motes[0]
	root.Boot()

	assert.True(t, root.IsRoot())
	assert.True(t, root.IsSync())
	assert.True(t, root.IsJoined())
	assert.Equal(t, rpl.RootRank, root.Dodag().Rank())
	assert.NotNil(t, root.SourceRoutes())
	cell, ok := root.Schedule().ActiveCell(0)
	require.True(t, ok)
	assert.Equal(t, tsch.MinimalCell(), cell.Cell)
	_, ok = n.eng.IsScheduled(root.tags.eb)
	assert.True(t, ok)
	assert.Len(t, n.find(simlog.SecjoinJoined, 0), 1)
}

func TestJoinNetwork(t *testing.T) {
	for _, secjoin := range []bool{false, true} {
		s := testSettings(2)
		s.SecjoinEnabled = secjoin
		n := newTestNet(t, s)
		for _, m := range n.motes {
			m.Boot()
		}
		assert.Equal(t, engine.RunPaused, n.runUntil(Asn(s.SecondsToSlots(120))))

		root, child := n.motes[0], n.motes[1]
		assert.True(t, child.IsSync(), "secjoin=%v", secjoin)
		assert.True(t, child.IsJoined(), "secjoin=%v", secjoin)
		assert.Equal(t, RootMoteId, child.Dodag().Parent())
		assert.Equal(t, RootMoteId, child.Timesource())
		assert.Greater(t, int(child.Dodag().Rank()), int(rpl.RootRank))

		assert.True(t, child.Schedule().HasDedicatedTxCell(RootMoteId), "MSF installs a TX cell at the child")
		rx := root.Schedule().CellsTo(1)
		require.Len(t, rx, 1)
		assert.True(t, rx[0].IsRx())
		assert.Equal(t, child.Schedule().CellsTo(0)[0].SlotOffset, rx[0].SlotOffset)
		assert.True(t, root.Dodag().IsChild(1))

		parent, ok := root.SourceRoutes().Parent(1)
		assert.True(t, ok)
		assert.Equal(t, RootMoteId, parent)
		assert.Equal(t, []MoteId{1}, root.SourceRoutes().ComputeSourceRoute(1))
		if secjoin {
			assert.Len(t, n.find(simlog.SecjoinJoined, 1), 1)
		}
	}
}

func TestSixpResponder(t *testing.T) {
	n := newTestNet(t, testSettings(2))
	root := n.motes[0]
	root.Boot()

	root.respondSixp(1, &packet.SixpRequest{
		Command:  packet.SixpAdd,
		NumCells: 1,
		CellList: []packet.CellDesc{{SlotOffset: 0, ChannelOffset: 3}, {SlotOffset: 5, ChannelOffset: 2}},
	})
	frame := root.TxQueue().First(func(p *packet.Packet) bool { return p.Type() == packet.TypeSixpResponse })
	require.NotNil(t, frame)
	resp := frame.Payload.(*packet.SixpResponse)
	assert.Equal(t, packet.SixpRcSuccess, resp.ReturnCode)
	assert.Equal(t, []packet.CellDesc{{SlotOffset: 5, ChannelOffset: 2}}, resp.CellList)
	assert.Empty(t, root.Schedule().CellsTo(1), "cells are installed once the response is acknowledged")

	root.onSixpResponseSent(1, resp)
	cells := root.Schedule().CellsTo(1)
	require.Len(t, cells, 1)
	assert.Equal(t, 5, cells[0].SlotOffset)
	assert.Equal(t, tsch.OptionRx, cells[0].Options)
	assert.True(t, root.Dodag().IsChild(1))

	root.TxQueue().Remove(frame)
	root.respondSixp(1, &packet.SixpRequest{
		Command:  packet.SixpAdd,
		NumCells: 1,
		CellList: []packet.CellDesc{{SlotOffset: 5, ChannelOffset: 1}},
	})
	frame = root.TxQueue().First(func(p *packet.Packet) bool { return p.Type() == packet.TypeSixpResponse })
	require.NotNil(t, frame)
	assert.Equal(t, packet.SixpRcErr, frame.Payload.(*packet.SixpResponse).ReturnCode)

	root.respondSixp(1, &packet.SixpRequest{Command: packet.SixpClear})
	assert.Empty(t, root.Schedule().CellsTo(1))
	assert.False(t, root.Dodag().IsChild(1))
}

func TestSixpTimeout(t *testing.T) {
	s := testSettings(2)
	n := newTestNet(t, s)
	m := n.motes[1]
	m.ForceSync(RootMoteId)
	m.ForceJoined()
	m.Boot()

	m.sixpAdd(RootMoteId, 1)
	require.Len(t, n.find(simlog.SixpTx, 1), 1)
	assert.Contains(t, m.sixp.pending, RootMoteId)

	n.runUntil(Asn(s.SecondsToSlots(s.SixpTimeout)) + 10)
	assert.Len(t, n.find(simlog.SixpTimeout, 1), 1)
	assert.NotContains(t, m.sixp.pending, RootMoteId)
	assert.False(t, m.Schedule().HasDedicatedTxCell(RootMoteId))
}

func TestEnqueueWhenNotSynced(t *testing.T) {
	n := newTestNet(t, testSettings(2))
	m := n.motes[1]
	assert.False(t, m.Enqueue(packet.New(0, 1, 0, &packet.Data{Size: 10})))
	drops := n.find(simlog.PacketDropped, 1)
	require.Len(t, drops, 1)
	assert.Equal(t, packet.DropDesync, drops[0].Str(simlog.KeyReason))
	assert.Equal(t, 1, m.Counters.Drops)
}

func TestDesync(t *testing.T) {
	n := newTestNet(t, testSettings(2))
	m := n.motes[1]
	m.ForceSync(RootMoteId)
	m.ForceJoined()
	m.ForceParent(RootMoteId, rpl.RootRank)
	require.NoError(t, m.ForceCell(tsch.Cell{SlotOffset: 1, Options: tsch.OptionTx, Neighbor: RootMoteId}))
	m.Boot()
	require.True(t, m.Enqueue(packet.New(0, 1, 0, &packet.Data{Size: 10})))

	m.desync()
	assert.False(t, m.IsSync())
	assert.False(t, m.IsJoined())
	assert.Equal(t, InvalidMoteId, m.Dodag().Parent())
	assert.Equal(t, InvalidMoteId, m.Timesource())
	assert.Zero(t, m.Schedule().NumCells())
	assert.Zero(t, m.TxQueue().Len())
	assert.Equal(t, 1, m.Counters.Desyncs)
	assert.Len(t, n.find(simlog.TschDesync, 1), 1)

	churn := n.find(simlog.RplChurn, 1)
	require.Len(t, churn, 1, "a forced parent is not churn")
	assert.EqualValues(t, RootMoteId, churn[0].Int(simlog.KeyOldParent))
	assert.EqualValues(t, InvalidMoteId, churn[0].Int(simlog.KeyNewParent))
	drops := n.find(simlog.PacketDropped, 1)
	require.Len(t, drops, 1)
	assert.Equal(t, packet.DropDesync, drops[0].Str(simlog.KeyReason))
	for _, tag := range []string{m.tags.dio, m.tags.dao, m.tags.eb, m.tags.keepAlive} {
		_, ok := n.eng.IsScheduled(tag)
		assert.False(t, ok, tag)
	}
}

func TestSendSinglePacketWithoutRoute(t *testing.T) {
	n := newTestNet(t, testSettings(2))
	m := n.motes[1]
	m.ForceSync(RootMoteId)
	m.ForceJoined()

	m.SendSinglePacket()
	assert.Equal(t, 1, m.Counters.AppGenerated)
	assert.Len(t, n.find(simlog.AppTx, 1), 1)
	drops := n.find(simlog.PacketDropped, 1)
	require.Len(t, drops, 1)
	assert.Equal(t, packet.DropNoRoute, drops[0].Str(simlog.KeyReason))
}

func TestFragmentationPerHop(t *testing.T) {
	s := testSettings(3)
	s.AppPkLength = 180
	n := newTestNet(t, s)
	n.motes[0].ForceSync(RootMoteId)
	for id := 1; id < 3; id++ {
		m := n.motes[id]
		m.ForceSync(id - 1)
		m.ForceJoined()
		m.ForceParent(id-1, uint16(int(rpl.RootRank)+(id-1)*rpl.MinHopRankIncrease))
		require.NoError(t, m.ForceCell(tsch.Cell{SlotOffset: id, Options: tsch.OptionTx, Neighbor: id - 1}))
		require.NoError(t, n.motes[id-1].ForceCell(tsch.Cell{SlotOffset: id, Options: tsch.OptionRx, Neighbor: id}))
	}
	for _, m := range n.motes {
		m.Boot()
	}

	n.motes[2].SendSinglePacket()
	assert.Len(t, n.find(simlog.SixlowpanFragGen, 2), 2)
	n.runUntil(Asn(s.SlotframeLength * 6))

	assert.Len(t, n.find(simlog.SixlowpanReassembled, 1), 1)
	reached := n.find(simlog.AppReachesRoot, 0)
	require.Len(t, reached, 1)
	assert.EqualValues(t, 2, reached[0].Int(simlog.KeySrcIp))
	assert.EqualValues(t, 2, reached[0].Int(simlog.KeyHopCount))
	assert.Equal(t, 1, n.motes[0].Counters.AppReachesRoot)
}
