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

// Package sixlowpan implements 6LoWPAN fragmentation: cutting datagrams into fragments, the
// datagram tag counter, reassembly buffers and the virtual reassembly buffer (VRB) table used for
// fragment forwarding.
package sixlowpan

import (
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// TagCounter generates datagram tags. Tags wrap from 65535 to 0.
type TagCounter struct {
	next uint16
}

// Next returns the current tag and advances the counter.
func (tc *TagCounter) Next() uint16 {
	t := tc.next
	tc.next++
	return t
}

// Set makes v the next tag returned.
func (tc *TagCounter) Set(v uint16) {
	tc.next = v
}

// Key identifies a datagram in transit: the link-layer sender and its tag.
type Key struct {
	Smac MoteId
	Tag  uint16
}

// Cut splits a datagram into fragments of at most maxLen bytes. A datagram that fits is returned
// unchanged as the only element.
func Cut(datagram *packet.Packet, maxLen int, tag uint16) []*packet.Packet {
	logger.AssertTrue(maxLen > 0, "invalid fragment length %d", maxLen)
	total := datagram.Length()
	if total <= maxLen {
		return []*packet.Packet{datagram}
	}

	num := (total + maxLen - 1) / maxLen
	frags := make([]*packet.Packet, 0, num)
	for offset := 0; offset < total; offset += maxLen {
		size := maxLen
		if total-offset < size {
			size = total - offset
		}
		f := *datagram
		f.SourceRoute = append([]MoteId(nil), datagram.SourceRoute...)
		f.Payload = &packet.Frag{
			DatagramTag:    tag,
			DatagramSize:   total,
			DatagramOffset: offset,
			Size:           size,
			Datagram:       datagram,
		}
		frags = append(frags, &f)
	}
	return frags
}
