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

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func TestQueue_Len(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())
	q.Add(&Event{Asn: 2, Action: Action{Mote: 2}})
	assert.Equal(t, 1, q.Len())
	q.Add(&Event{Asn: 1, Action: Action{Mote: 1}})
	assert.Equal(t, 2, q.Len())
}

func TestQueue_NextTimestamp(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, Ever, q.NextTimestamp())
	q.Add(&Event{Asn: 2})
	assert.Equal(t, Asn(2), q.NextTimestamp())
	q.Add(&Event{Asn: 1})
	assert.Equal(t, Asn(1), q.NextTimestamp())
	q.Add(&Event{Asn: 3})
	assert.Equal(t, Asn(1), q.NextTimestamp())
}

func TestQueue_OrderAsnPrioritySeq(t *testing.T) {
	q := NewQueue()
	q.Add(&Event{Asn: 5, Priority: PriorityPropagate, Action: Action{Arg: 1}})
	q.Add(&Event{Asn: 5, Priority: PriorityStartSlot, Action: Action{Arg: 2}})
	q.Add(&Event{Asn: 4, Priority: PriorityEndSlot, Action: Action{Arg: 3}})
	q.Add(&Event{Asn: 5, Priority: PriorityStartSlot, Action: Action{Arg: 4}})
	q.Add(&Event{Asn: 5, Priority: PriorityPropagate, Action: Action{Arg: 5}})

	var order []int
	for q.Len() > 0 {
		order = append(order, q.PopNext().Action.Arg)
	}
	assert.Equal(t, []int{3, 2, 4, 1, 5}, order)
	assert.Nil(t, q.PopNext())
	assert.Nil(t, q.NextEvent())
}

func TestQueue_TagReplaces(t *testing.T) {
	q := NewQueue()
	first := &Event{Asn: 10, Tag: "app-1", Action: Action{Kind: KindAppTimer, Mote: 1}}
	assert.Nil(t, q.Add(first))
	second := &Event{Asn: 20, Tag: "app-1", Action: Action{Kind: KindAppTimer, Mote: 1}}
	assert.Equal(t, first, q.Add(second))
	q.Add(&Event{Asn: 15})

	assert.Equal(t, 2, q.Len())
	pending, ok := q.Pending("app-1")
	assert.True(t, ok)
	assert.Equal(t, Asn(20), pending.Asn)

	assert.Equal(t, Asn(15), q.PopNext().Asn)
	assert.Equal(t, Asn(20), q.PopNext().Asn)
	_, ok = q.Pending("app-1")
	assert.False(t, ok)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 10; i++ {
		q.Add(&Event{Asn: Asn(10 - i), Action: Action{Arg: i}})
	}
	q.Add(&Event{Asn: 3, Tag: "x"})
	assert.True(t, q.Remove("x"))
	assert.False(t, q.Remove("x"))
	assert.Equal(t, 10, q.Len())

	last := Asn(0)
	for q.Len() > 0 {
		e := q.PopNext()
		assert.True(t, e.Asn >= last)
		last = e.Asn
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "activeCell", KindActiveCell.String())
	assert.Equal(t, "kind(200)", Kind(200).String())
	e := &Event{Asn: 1, Action: Action{Kind: KindTerminate}}
	assert.Contains(t, e.String(), "terminate")
}
