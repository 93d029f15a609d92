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

package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func TestTypeDerivedFromPayload(t *testing.T) {
	cases := []struct {
		payload Payload
		typ     Type
		name    string
	}{
		{&Data{Size: 90}, TypeData, "DATA"},
		{&Frag{Size: 10}, TypeFrag, "FRAG"},
		{&Dio{Rank: 256}, TypeDio, "DIO"},
		{&Dao{Child: 1, Parent: 0}, TypeDao, "DAO"},
		{&Eb{}, TypeEb, "EB"},
		{&SixpRequest{Command: SixpAdd}, TypeSixpRequest, "6P_REQUEST"},
		{&SixpResponse{Command: SixpAdd}, TypeSixpResponse, "6P_RESPONSE"},
		{&Join{}, TypeJoin, "JOIN"},
		{&Ack{}, TypeAck, "ACK"},
		{&KeepAlive{}, TypeKeepAlive, "KEEP_ALIVE"},
	}
	for _, c := range cases {
		p := New(0, 1, 0, c.payload)
		assert.Equal(t, c.typ, p.Type())
		assert.Equal(t, c.name, p.Type().String())
	}
	assert.Equal(t, "type(200)", Type(200).String())
}

func TestPrivilegedTypes(t *testing.T) {
	assert.True(t, TypeJoin.IsPrivileged())
	assert.True(t, TypeDao.IsPrivileged())
	assert.True(t, TypeSixpRequest.IsPrivileged())
	assert.True(t, TypeSixpResponse.IsPrivileged())
	assert.False(t, TypeData.IsPrivileged())
	assert.False(t, TypeFrag.IsPrivileged())
	assert.False(t, TypeDio.IsPrivileged())
	assert.False(t, TypeEb.IsPrivileged())
}

func TestNewAndBroadcast(t *testing.T) {
	p := New(12, 3, 0, &Data{AppCounter: 4, Size: 50})
	assert.Equal(t, Asn(12), p.CreatedAsn)
	assert.Equal(t, 3, p.Smac)
	assert.Equal(t, 0, p.Dmac)
	assert.Equal(t, DefaultHopLimit, p.HopLimit)
	assert.Equal(t, 50, p.Length())
	assert.False(t, p.IsBroadcast())

	eb := New(12, 3, BroadcastMoteId, &Eb{})
	assert.True(t, eb.IsBroadcast())
}

func TestCloneIsIndependent(t *testing.T) {
	p := New(0, 0, 3, &SixpRequest{Command: SixpAdd, CellList: []CellDesc{{1, 2}}})
	p.SourceRoute = []MoteId{1, 2, 3}
	c := p.Clone()
	c.SourceRoute[0] = 9
	c.Payload.(*SixpRequest).CellList[0].SlotOffset = 7
	c.Dmac = 5

	assert.Equal(t, 1, p.SourceRoute[0])
	assert.Equal(t, 1, p.Payload.(*SixpRequest).CellList[0].SlotOffset)
	assert.Equal(t, 3, p.Dmac)
	assert.Equal(t, 14, p.Length())
}

func TestFragBoundaries(t *testing.T) {
	first := &Frag{DatagramSize: 180, DatagramOffset: 0, Size: 90}
	last := &Frag{DatagramSize: 180, DatagramOffset: 90, Size: 90}
	assert.True(t, first.IsFirst())
	assert.False(t, first.IsLast())
	assert.False(t, last.IsFirst())
	assert.True(t, last.IsLast())
}

func TestCodeStrings(t *testing.T) {
	assert.Equal(t, "CLEAR", SixpClear.String())
	assert.Equal(t, "RC_ERR", SixpRcErr.String())
	assert.Equal(t, "response", JoinResponse.String())
}
