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

package types

import (
	"fmt"
	"math"
)

// MoteId is both the identity and the link-layer/IPv6 address of a mote.
type MoteId = int

// Asn is the Absolute Slot Number, the global discrete time unit.
type Asn = uint64

// ChannelId is an IEEE 802.15.4 channel number (11-26 at 2.4 GHz).
type ChannelId = int

// DbValue is a value in dB or dBm.
type DbValue = float64

const (
	RootMoteId      MoteId = 0
	BroadcastMoteId MoteId = -1
	InvalidMoteId   MoteId = -2
)

const (
	// Ever is an ASN that is never reached.
	Ever Asn = math.MaxUint64 / 2
)

const (
	MinChannelNumber ChannelId = 11
	MaxChannelNumber ChannelId = 26
)

const (
	// RssiMinusInfinity is the sentinel RSSI for 'no link'.
	RssiMinusInfinity DbValue = -127.0
	RssiMin           DbValue = -126.0
	RssiMax           DbValue = 0.0
)

// HoppingChannels returns the physical channels used by a network with numChans channels.
func HoppingChannels(numChans int) []ChannelId {
	chans := make([]ChannelId, 0, numChans)
	for i := 0; i < numChans; i++ {
		chans = append(chans, MinChannelNumber+i)
	}
	return chans
}

type RadioStates byte

const (
	RadioDisabled RadioStates = 0
	RadioSleep    RadioStates = 1
	RadioRx       RadioStates = 2
	RadioTx       RadioStates = 3
)

func (s RadioStates) String() string {
	switch s {
	case RadioDisabled:
		return "Off"
	case RadioSleep:
		return "Slp"
	case RadioRx:
		return "Rx_"
	case RadioTx:
		return "Tx_"
	default:
		return fmt.Sprintf("invalid(%d)", byte(s))
	}
}

// GetMoteName returns the display name of a mote.
func GetMoteName(id MoteId) string {
	if id == BroadcastMoteId {
		return "Broadcast"
	}
	return fmt.Sprintf("Mote<%d>", id)
}
