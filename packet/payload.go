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
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Payload is the type-specific content of a frame. The concrete payload types are the variants
// below; a type switch on Payload selects the variant.
type Payload interface {
	Type() Type
	Length() int
	clone() Payload
}

// Data is an application datagram.
type Data struct {
	AppCounter int
	Size       int
	Echo       bool
}

func (d *Data) Type() Type     { return TypeData }
func (d *Data) Length() int    { return d.Size }
func (d *Data) clone() Payload { c := *d; return &c }

// Frag is a 6LoWPAN fragment of a datagram.
type Frag struct {
	DatagramTag    uint16
	DatagramSize   int
	DatagramOffset int
	Size           int
	Datagram       *Packet // the original datagram, delivered at reassembly
}

func (f *Frag) Type() Type     { return TypeFrag }
func (f *Frag) Length() int    { return f.Size }
func (f *Frag) clone() Payload { c := *f; return &c }

// IsFirst tells whether this is the first fragment of its datagram.
func (f *Frag) IsFirst() bool {
	return f.DatagramOffset == 0
}

// IsLast tells whether this is the last fragment of its datagram.
func (f *Frag) IsLast() bool {
	return f.DatagramOffset+f.Size >= f.DatagramSize
}

// Dio is an RPL DODAG Information Object.
type Dio struct {
	Rank    uint16
	DodagId MoteId
}

func (d *Dio) Type() Type     { return TypeDio }
func (d *Dio) Length() int    { return dioLength }
func (d *Dio) clone() Payload { c := *d; return &c }

// Dao is an RPL Destination Advertisement Object in non-storing mode.
type Dao struct {
	Child  MoteId
	Parent MoteId
}

func (d *Dao) Type() Type     { return TypeDao }
func (d *Dao) Length() int    { return daoLength }
func (d *Dao) clone() Payload { c := *d; return &c }

// Eb is an enhanced beacon.
type Eb struct {
	JoinMetric int
}

func (e *Eb) Type() Type     { return TypeEb }
func (e *Eb) Length() int    { return ebLength }
func (e *Eb) clone() Payload { c := *e; return &c }

// SixpCommand is a 6P command code.
type SixpCommand uint8

const (
	SixpAdd SixpCommand = iota + 1
	SixpDelete
	SixpClear
)

func (c SixpCommand) String() string {
	switch c {
	case SixpAdd:
		return "ADD"
	case SixpDelete:
		return "DELETE"
	case SixpClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// SixpReturnCode is a 6P response code.
type SixpReturnCode uint8

const (
	SixpRcSuccess SixpReturnCode = iota
	SixpRcErr
	SixpRcReset
	SixpRcErrBusy
)

func (rc SixpReturnCode) String() string {
	switch rc {
	case SixpRcSuccess:
		return "RC_SUCCESS"
	case SixpRcErr:
		return "RC_ERR"
	case SixpRcReset:
		return "RC_RESET"
	case SixpRcErrBusy:
		return "RC_ERR_BUSY"
	default:
		return "RC_UNKNOWN"
	}
}

// CellDesc is a cell as carried by 6P messages.
type CellDesc struct {
	SlotOffset    int
	ChannelOffset int
}

// SixpRequest is a 6P request.
type SixpRequest struct {
	Command  SixpCommand
	SeqNum   uint8
	NumCells int
	CellList []CellDesc
}

func (s *SixpRequest) Type() Type  { return TypeSixpRequest }
func (s *SixpRequest) Length() int { return sixpBaseLength + sixpCellLength*len(s.CellList) }
func (s *SixpRequest) clone() Payload {
	c := *s
	c.CellList = append([]CellDesc(nil), s.CellList...)
	return &c
}

// SixpResponse is a 6P response.
type SixpResponse struct {
	Command    SixpCommand
	SeqNum     uint8
	ReturnCode SixpReturnCode
	CellList   []CellDesc
}

func (s *SixpResponse) Type() Type  { return TypeSixpResponse }
func (s *SixpResponse) Length() int { return sixpBaseLength + sixpCellLength*len(s.CellList) }
func (s *SixpResponse) clone() Payload {
	c := *s
	c.CellList = append([]CellDesc(nil), s.CellList...)
	return &c
}

// JoinStage is the step of the join handshake a JOIN frame carries.
type JoinStage uint8

const (
	JoinRequest JoinStage = iota
	JoinResponse
)

func (s JoinStage) String() string {
	if s == JoinRequest {
		return "request"
	}
	return "response"
}

// Join is a secure join handshake message, relayed by the pledge's join proxy.
type Join struct {
	Stage  JoinStage
	Pledge MoteId
	Proxy  MoteId
}

func (j *Join) Type() Type     { return TypeJoin }
func (j *Join) Length() int    { return joinLength }
func (j *Join) clone() Payload { c := *j; return &c }

// Ack is a link-layer acknowledgment.
type Ack struct{}

func (a *Ack) Type() Type     { return TypeAck }
func (a *Ack) Length() int    { return ackLength }
func (a *Ack) clone() Payload { return &Ack{} }

// KeepAlive is an empty frame keeping the link to the timesource alive.
type KeepAlive struct{}

func (k *KeepAlive) Type() Type     { return TypeKeepAlive }
func (k *KeepAlive) Length() int    { return keepAliveLength }
func (k *KeepAlive) clone() Payload { return &KeepAlive{} }
