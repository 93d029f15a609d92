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

// Package packet defines the frames exchanged by motes: a common envelope and one payload struct
// per frame type.
package packet

import (
	"fmt"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Type is the frame type, derived from the payload.
type Type uint8

const (
	TypeData Type = iota
	TypeFrag
	TypeDio
	TypeDao
	TypeEb
	TypeSixpRequest
	TypeSixpResponse
	TypeJoin
	TypeAck
	TypeKeepAlive
	numTypes
)

var typeNames = [numTypes]string{
	TypeData:         "DATA",
	TypeFrag:         "FRAG",
	TypeDio:          "DIO",
	TypeDao:          "DAO",
	TypeEb:           "EB",
	TypeSixpRequest:  "6P_REQUEST",
	TypeSixpResponse: "6P_RESPONSE",
	TypeJoin:         "JOIN",
	TypeAck:          "ACK",
	TypeKeepAlive:    "KEEP_ALIVE",
}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// IsPrivileged tells whether frames of the type go ahead of ordinary traffic in the TX queue.
func (t Type) IsPrivileged() bool {
	switch t {
	case TypeJoin, TypeDao, TypeSixpRequest, TypeSixpResponse:
		return true
	default:
		return false
	}
}

const (
	DefaultHopLimit = 64

	// frame lengths in bytes of the control frames
	dioLength       = 30
	daoLength       = 20
	ebLength        = 20
	sixpBaseLength  = 10
	sixpCellLength  = 4
	joinLength      = 40
	ackLength       = 5
	keepAliveLength = 5
)

// Packet is a frame, with both its link-layer (mac) and network-layer (ip) addressing.
type Packet struct {
	CreatedAsn  Asn
	SrcIp       MoteId
	DstIp       MoteId
	Smac        MoteId
	Dmac        MoteId
	RetriesLeft int
	SourceRoute []MoteId // remaining hops of a downward route, next hop first
	HopLimit    int
	HopCount    int
	Payload     Payload
}

// New creates a frame originated by src for dst.
func New(asn Asn, src, dst MoteId, payload Payload) *Packet {
	return &Packet{
		CreatedAsn: asn,
		SrcIp:      src,
		DstIp:      dst,
		Smac:       src,
		Dmac:       dst,
		HopLimit:   DefaultHopLimit,
		Payload:    payload,
	}
}

// Type returns the frame type of the payload.
func (p *Packet) Type() Type {
	return p.Payload.Type()
}

// Length returns the frame payload length in bytes.
func (p *Packet) Length() int {
	return p.Payload.Length()
}

func (p *Packet) IsBroadcast() bool {
	return p.Dmac == BroadcastMoteId
}

// Clone copies the envelope and the payload. A fragment's datagram pointer is shared.
func (p *Packet) Clone() *Packet {
	c := *p
	c.SourceRoute = append([]MoteId(nil), p.SourceRoute...)
	c.Payload = p.Payload.clone()
	return &c
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s{src=%d, dst=%d, smac=%d, dmac=%d, len=%d}", p.Type(), p.SrcIp, p.DstIp, p.Smac,
		p.Dmac, p.Length())
}
