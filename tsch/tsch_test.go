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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func TestCellOptions(t *testing.T) {
	c := MinimalCell()
	assert.True(t, c.IsTx())
	assert.True(t, c.IsRx())
	assert.True(t, c.IsShared())
	assert.False(t, c.IsDedicatedTo(BroadcastMoteId))
	assert.Equal(t, "TX|RX|SHARED", c.Options.String())
	assert.Equal(t, "NONE", CellOption(0).String())

	d := Cell{SlotOffset: 3, Options: OptionTx, Neighbor: 2}
	assert.True(t, d.IsDedicatedTo(2))
	assert.False(t, d.IsDedicatedTo(1))
	assert.Equal(t, "Cell{slot=3, ch=0, TX, nb=2}", d.String())
}

func TestPhysicalChannel(t *testing.T) {
	assert.Equal(t, ChannelId(11), PhysicalChannel(0, 0, 16))
	assert.Equal(t, ChannelId(14), PhysicalChannel(1, 2, 16))
	assert.Equal(t, ChannelId(11), PhysicalChannel(16, 0, 16))
	assert.Equal(t, ChannelId(12), PhysicalChannel(15, 2, 16))
	assert.Equal(t, ChannelId(11), PhysicalChannel(123, 4, 1))
}

func TestAddCell(t *testing.T) {
	s := NewSchedule()
	s.AddSlotframe(MinimalSlotframeHandle, 101)
	require.Nil(t, s.AddCell(0, MinimalCell(), false))
	require.Nil(t, s.AddCell(0, MinimalCell(), false)) // identical, no-op
	assert.Equal(t, 1, s.NumCells())

	other := Cell{SlotOffset: 0, Options: OptionTx, Neighbor: 1}
	err := s.AddCell(0, other, false)
	assert.True(t, errors.Is(err, ErrCellConflict))
	c, _ := s.Slotframe(0).Cell(0)
	assert.Equal(t, MinimalCell(), c)

	require.Nil(t, s.AddCell(0, other, true))
	c, _ = s.Slotframe(0).Cell(0)
	assert.Equal(t, other, c)

	assert.NotNil(t, s.AddCell(7, MinimalCell(), false))
	assert.Panics(t, func() {
		_ = s.AddCell(0, Cell{SlotOffset: 101}, false)
	})
	assert.Panics(t, func() {
		s.AddSlotframe(0, 10)
	})
}

func TestDeleteCell(t *testing.T) {
	s := NewSchedule()
	s.AddSlotframe(0, 11)
	require.Nil(t, s.AddCell(0, Cell{SlotOffset: 5, Options: OptionRx, Neighbor: 1}, false))
	assert.True(t, s.DeleteCell(0, 5))
	assert.False(t, s.DeleteCell(0, 5))
	assert.False(t, s.DeleteCell(3, 5))
	assert.Equal(t, 0, s.NumCells())
}

func TestActiveCellLowestHandleWins(t *testing.T) {
	s := NewSchedule()
	s.AddSlotframe(DedicatedSlotframeHandle, 11)
	s.AddSlotframe(MinimalSlotframeHandle, 11)
	require.Nil(t, s.AddCell(1, Cell{SlotOffset: 0, Options: OptionTx, Neighbor: 3}, false))
	require.Nil(t, s.AddCell(0, MinimalCell(), false))

	cells := s.CellsAt(22)
	require.Len(t, cells, 2)
	assert.Equal(t, 0, cells[0].Handle)
	assert.Equal(t, 1, cells[1].Handle)

	ac, ok := s.ActiveCell(22)
	require.True(t, ok)
	assert.Equal(t, MinimalCell(), ac.Cell)

	_, ok = s.ActiveCell(23)
	assert.False(t, ok)
}

func TestNextActiveAsn(t *testing.T) {
	s := NewSchedule()
	assert.Equal(t, Ever, s.NextActiveAsn(0))

	s.AddSlotframe(0, 10)
	require.Nil(t, s.AddCell(0, MinimalCell(), false))
	assert.Equal(t, Asn(10), s.NextActiveAsn(0))
	assert.Equal(t, Asn(10), s.NextActiveAsn(5))
	assert.Equal(t, Asn(20), s.NextActiveAsn(10))

	s.AddSlotframe(1, 10)
	require.Nil(t, s.AddCell(1, Cell{SlotOffset: 4, Options: OptionRx, Neighbor: 2}, false))
	assert.Equal(t, Asn(4), s.NextActiveAsn(0))
	assert.Equal(t, Asn(10), s.NextActiveAsn(4))
	assert.Equal(t, Asn(14), s.NextActiveAsn(10))
}

func TestFreeSlotOffsetsAndCellsTo(t *testing.T) {
	s := NewSchedule()
	s.AddSlotframe(0, 5)
	s.AddSlotframe(1, 5)
	require.Nil(t, s.AddCell(0, MinimalCell(), false))
	require.Nil(t, s.AddCell(1, Cell{SlotOffset: 2, Options: OptionTx, Neighbor: 4}, false))
	require.Nil(t, s.AddCell(1, Cell{SlotOffset: 3, Options: OptionRx, Neighbor: 4}, false))

	assert.Equal(t, []int{1, 4}, s.FreeSlotOffsets(1))
	assert.Nil(t, s.FreeSlotOffsets(9))

	to4 := s.CellsTo(4)
	require.Len(t, to4, 2)
	assert.Equal(t, 2, to4[0].SlotOffset)
	assert.True(t, s.HasDedicatedTxCell(4))
	assert.False(t, s.HasDedicatedTxCell(5))

	s.Reset()
	assert.Equal(t, 0, s.NumCells())
	assert.Nil(t, s.Slotframe(0))
}

func newTestPacket(payload packet.Payload) *packet.Packet {
	return packet.New(0, 1, 0, payload)
}

func TestTxQueueCapacityAndReasons(t *testing.T) {
	q := NewTxQueue(3)
	for i := 0; i < 3; i++ {
		ok, _ := q.Enqueue(newTestPacket(&packet.Data{AppCounter: i}))
		require.True(t, ok)
	}
	ok, reason := q.Enqueue(newTestPacket(&packet.Data{}))
	assert.False(t, ok)
	assert.Equal(t, "tx queue full: data", reason)

	ok, reason = q.Enqueue(newTestPacket(&packet.Frag{}))
	assert.False(t, ok)
	assert.Equal(t, "tx queue full: frag", reason)

	ok, reason = q.Enqueue(newTestPacket(&packet.Dao{}))
	assert.False(t, ok)
	assert.Equal(t, "tx queue full: dao", reason)
	assert.True(t, IsQueueFullReason(reason))
	assert.False(t, IsQueueFullReason("max retries"))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Capacity())
}

func TestTxQueuePrivilegedFifo(t *testing.T) {
	q := NewTxQueue(10)
	d1 := newTestPacket(&packet.Data{AppCounter: 1})
	d2 := newTestPacket(&packet.Data{AppCounter: 2})
	dao := newTestPacket(&packet.Dao{Child: 1})
	join := newTestPacket(&packet.Join{})
	sixp := newTestPacket(&packet.SixpRequest{Command: packet.SixpAdd})

	for _, p := range []*packet.Packet{d1, dao, d2, join, sixp} {
		ok, _ := q.Enqueue(p)
		require.True(t, ok)
	}
	assert.Equal(t, []*packet.Packet{dao, join, sixp, d1, d2}, q.Frames())

	assert.Same(t, d2, q.First(func(p *packet.Packet) bool {
		return p.Type() == packet.TypeData && p.Payload.(*packet.Data).AppCounter == 2
	}))
	assert.Nil(t, q.First(func(p *packet.Packet) bool { return p.Type() == packet.TypeEb }))

	assert.True(t, q.Remove(join))
	assert.False(t, q.Remove(join))
	assert.Equal(t, []*packet.Packet{dao, sixp, d1, d2}, q.Frames())

	flushed := q.Flush()
	assert.Len(t, flushed, 4)
	assert.Equal(t, 0, q.Len())
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(1, 3, rand.New(rand.NewSource(1)))
	assert.Equal(t, 1, b.Exponent())
	assert.True(t, b.CanTransmit())

	for i := 0; i < 5; i++ {
		b.OnFailure()
		assert.True(t, b.Exponent() <= 3)
		assert.True(t, b.Counter() >= 0 && b.Counter() < 1<<b.Exponent())
	}
	assert.Equal(t, 3, b.Exponent())

	for !b.CanTransmit() {
		before := b.Counter()
		b.Skip()
		assert.Equal(t, before-1, b.Counter())
	}
	b.Skip()
	assert.Equal(t, 0, b.Counter())

	b.OnSuccess()
	assert.Equal(t, 1, b.Exponent())
	assert.Equal(t, 0, b.Counter())

	assert.Panics(t, func() {
		NewBackoff(4, 2, nil)
	})
}
