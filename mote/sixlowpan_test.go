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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/rpl"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/sixlowpan"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// newForwardingNet returns a 3-mote line whose middle mote forwards fragments from mote 2 to the root.
func newForwardingNet(t *testing.T, policy ...string) (*testNet, *Mote) {
	s := testSettings(3)
	s.Fragmentation = settings.FragFragmentForwarding
	s.FragFfDiscardVrbEntryPolicy = policy
	n := newTestNet(t, s)
	m := n.motes[1]
	m.ForceSync(RootMoteId)
	m.ForceJoined()
	m.ForceParent(RootMoteId, rpl.RootRank)
	return n, m
}

// fragmentsFrom2 cuts a 250 byte datagram sent by mote 2 into fragments at offsets 0, 90 and 180.
func fragmentsFrom2(hopLimit int) []*packet.Packet {
	p := packet.New(0, 2, RootMoteId, &packet.Data{Size: 250})
	p.Smac = 2
	p.Dmac = 1
	p.HopLimit = hopLimit
	return sixlowpan.Cut(p, 90, 7)
}

func reasons(records []*simlog.Record) []string {
	var res []string
	for _, r := range records {
		res = append(res, r.Str(simlog.KeyReason))
	}
	return res
}

func TestForwardFragmentLastFragmentPolicy(t *testing.T) {
	n, m := newForwardingNet(t, settings.VrbPolicyLastFragment)
	frags := fragmentsFrom2(packet.DefaultHopLimit)
	require.Len(t, frags, 3)

	m.receiveFrag(frags[0], 0)
	assert.Equal(t, 1, m.vrb.Len())
	assert.Len(t, n.find(simlog.SixlowpanVrbAdd, 1), 1)

	m.receiveFrag(frags[1], 0)
	m.receiveFrag(frags[2], 0)
	assert.Zero(t, m.vrb.Len())
	removed := n.find(simlog.SixlowpanVrbRemove, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, settings.VrbPolicyLastFragment, removed[0].Str(simlog.KeyReason))

	queued := m.TxQueue().Frames()
	require.Len(t, queued, 3)
	outTag := queued[0].Payload.(*packet.Frag).DatagramTag
	for i, f := range queued {
		frag := f.Payload.(*packet.Frag)
		assert.Equal(t, i*90, frag.DatagramOffset)
		assert.Equal(t, outTag, frag.DatagramTag)
		assert.Equal(t, 1, f.Smac)
		assert.Equal(t, RootMoteId, f.Dmac)
		assert.Equal(t, packet.DefaultHopLimit-1, f.HopLimit)
	}

	late := fragmentsFrom2(packet.DefaultHopLimit)[1]
	m.receiveFrag(late, 0)
	assert.Equal(t, []string{packet.DropNoVrbEntry}, reasons(n.find(simlog.PacketDropped, 1)))
	assert.Equal(t, 3, m.TxQueue().Len())
}

func TestForwardFragmentMissingFragmentPolicy(t *testing.T) {
	n, m := newForwardingNet(t, settings.VrbPolicyMissingFragment)
	frags := fragmentsFrom2(packet.DefaultHopLimit)

	m.receiveFrag(frags[0], 0)
	m.receiveFrag(frags[2], 0)
	assert.Zero(t, m.vrb.Len())
	removed := n.find(simlog.SixlowpanVrbRemove, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, packet.DropMissingFragment, removed[0].Str(simlog.KeyReason))
	assert.Equal(t, 1, m.TxQueue().Len(), "only the first fragment is relayed")

	m.receiveFrag(frags[1], 0)
	assert.Equal(t, []string{packet.DropMissingFragment, packet.DropNoVrbEntry},
		reasons(n.find(simlog.PacketDropped, 1)))
	assert.Equal(t, 1, m.TxQueue().Len())
}

func TestForwardFragmentPoliciesApplySeparately(t *testing.T) {
	t.Run("missing_fragment keeps the entry after the last fragment", func(t *testing.T) {
		n, m := newForwardingNet(t, settings.VrbPolicyMissingFragment)
		for _, f := range fragmentsFrom2(packet.DefaultHopLimit) {
			m.receiveFrag(f, 0)
		}
		assert.Equal(t, 1, m.vrb.Len())
		assert.Empty(t, n.find(simlog.SixlowpanVrbRemove, 1))
		assert.Equal(t, 3, m.TxQueue().Len())
	})

	t.Run("last_fragment relays across a gap", func(t *testing.T) {
		n, m := newForwardingNet(t, settings.VrbPolicyLastFragment)
		frags := fragmentsFrom2(packet.DefaultHopLimit)
		m.receiveFrag(frags[0], 0)
		m.receiveFrag(frags[2], 0)
		assert.Zero(t, m.vrb.Len())
		assert.Empty(t, n.find(simlog.PacketDropped, 1))
		assert.Equal(t, 2, m.TxQueue().Len())
	})
}

func TestForwardFragmentHopLimit(t *testing.T) {
	n, m := newForwardingNet(t, settings.VrbPolicyLastFragment)
	frags := fragmentsFrom2(1)

	m.receiveFrag(frags[0], 0)
	assert.Zero(t, m.vrb.Len())
	assert.Empty(t, n.find(simlog.SixlowpanVrbAdd, 1))
	assert.Zero(t, m.TxQueue().Len())
	assert.Equal(t, []string{packet.DropHopLimit}, reasons(n.find(simlog.PacketDropped, 1)))

	m.receiveFrag(frags[1], 0)
	assert.Equal(t, []string{packet.DropHopLimit, packet.DropHopLimit}, reasons(n.find(simlog.PacketDropped, 1)))
}

func TestSendIpQueuesAllFragmentsOrNone(t *testing.T) {
	s := testSettings(2)
	s.TxQueueSize = 3
	n := newTestNet(t, s)
	m := n.motes[1]
	m.ForceSync(RootMoteId)
	m.ForceJoined()
	m.ForceParent(RootMoteId, rpl.RootRank)

	for i := 0; i < 2; i++ {
		require.True(t, m.Enqueue(packet.New(0, 1, RootMoteId, &packet.Data{Size: 10})))
	}
	assert.False(t, m.sendIp(packet.New(0, 1, RootMoteId, &packet.Data{Size: 180})))
	assert.Equal(t, 2, m.TxQueue().Len())
	assert.Empty(t, n.find(simlog.SixlowpanFragGen, 1))
	assert.Equal(t, []string{tsch.DropReasonQueueFull(packet.TypeFrag)}, reasons(n.find(simlog.PacketDropped, 1)))

	m.TxQueue().Remove(m.TxQueue().Frames()[0])
	assert.True(t, m.sendIp(packet.New(0, 1, RootMoteId, &packet.Data{Size: 180})))
	assert.Equal(t, 3, m.TxQueue().Len())
	assert.Len(t, n.find(simlog.SixlowpanFragGen, 1), 2)
}
