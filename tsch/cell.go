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

// Package tsch holds the TSCH MAC data structures of a mote: slotframes and their cells, the
// bounded TX queue and the shared-cell backoff.
package tsch

import (
	"fmt"
	"strings"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// CellOption is a set of cell options.
type CellOption uint8

const (
	OptionTx CellOption = 1 << iota
	OptionRx
	OptionShared
)

func (o CellOption) String() string {
	var parts []string
	if o&OptionTx != 0 {
		parts = append(parts, "TX")
	}
	if o&OptionRx != 0 {
		parts = append(parts, "RX")
	}
	if o&OptionShared != 0 {
		parts = append(parts, "SHARED")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

const (
	MinimalSlotframeHandle   = 0
	DedicatedSlotframeHandle = 1
	MinimalCellSlotOffset    = 0
	MinimalCellChannelOffset = 0
)

// Cell is a (slot offset, channel offset) pair of a slotframe, used for the given options with a
// neighbor, or with any neighbor if Neighbor is BroadcastMoteId.
type Cell struct {
	SlotOffset    int
	ChannelOffset int
	Options       CellOption
	Neighbor      MoteId
}

// MinimalCell returns the shared cell of the minimal schedule.
func MinimalCell() Cell {
	return Cell{
		SlotOffset:    MinimalCellSlotOffset,
		ChannelOffset: MinimalCellChannelOffset,
		Options:       OptionTx | OptionRx | OptionShared,
		Neighbor:      BroadcastMoteId,
	}
}

func (c Cell) IsTx() bool {
	return c.Options&OptionTx != 0
}

func (c Cell) IsRx() bool {
	return c.Options&OptionRx != 0
}

func (c Cell) IsShared() bool {
	return c.Options&OptionShared != 0
}

// IsDedicatedTo tells whether the cell is reserved for a single neighbor.
func (c Cell) IsDedicatedTo(neighbor MoteId) bool {
	return c.Neighbor != BroadcastMoteId && c.Neighbor == neighbor
}

func (c Cell) String() string {
	nb := "*"
	if c.Neighbor != BroadcastMoteId {
		nb = fmt.Sprintf("%d", c.Neighbor)
	}
	return fmt.Sprintf("Cell{slot=%d, ch=%d, %s, nb=%s}", c.SlotOffset, c.ChannelOffset, c.Options, nb)
}

// PhysicalChannel returns the channel used by a cell with channelOffset at asn.
func PhysicalChannel(asn Asn, channelOffset int, numChans int) ChannelId {
	return MinChannelNumber + ChannelId((asn+Asn(channelOffset))%Asn(numChans))
}
