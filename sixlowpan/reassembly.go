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

package sixlowpan

import (
	"sort"

	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type fragDesc struct {
	offset int
	size   int
}

type reassemblyBuffer struct {
	expiration Asn
	size       int
	received   int
	frags      []fragDesc
}

// ReassemblyBuffers holds the datagrams being reassembled by a mote, keyed by sender and tag.
type ReassemblyBuffers struct {
	capacity        int
	unbounded       bool
	maxDatagramSize int
	lifetime        Asn
	buffers         map[Key]*reassemblyBuffer
}

// NewReassemblyBuffers creates the buffers of a mote. An unbounded mote (the root) never refuses a
// new datagram for lack of buffers.
func NewReassemblyBuffers(capacity int, unbounded bool, maxDatagramSize int, lifetime Asn) *ReassemblyBuffers {
	return &ReassemblyBuffers{
		capacity:        capacity,
		unbounded:       unbounded,
		maxDatagramSize: maxDatagramSize,
		lifetime:        lifetime,
		buffers:         make(map[Key]*reassemblyBuffer),
	}
}

// Add stores a fragment received at asn. When the fragment completes its datagram, the datagram is
// returned and its buffer released. When the fragment cannot be stored, the drop reason is
// returned. Duplicate fragments are ignored.
func (rb *ReassemblyBuffers) Add(key Key, frag *packet.Packet, asn Asn) (*packet.Packet, string) {
	f := frag.Payload.(*packet.Frag)
	if f.DatagramSize > rb.maxDatagramSize {
		return nil, packet.DropTooBigForReassembly
	}

	buf, ok := rb.buffers[key]
	if !ok {
		if !rb.unbounded && len(rb.buffers) >= rb.capacity {
			return nil, packet.DropReassemblyQueueFull
		}
		buf = &reassemblyBuffer{
			expiration: asn + rb.lifetime,
			size:       f.DatagramSize,
		}
		rb.buffers[key] = buf
	}

	for _, d := range buf.frags {
		if d.offset == f.DatagramOffset {
			return nil, ""
		}
	}
	buf.frags = append(buf.frags, fragDesc{offset: f.DatagramOffset, size: f.Size})
	buf.received += f.Size

	if buf.received < buf.size {
		return nil, ""
	}
	delete(rb.buffers, key)
	datagram := f.Datagram.Clone()
	datagram.Smac = frag.Smac
	datagram.Dmac = frag.Dmac
	datagram.HopCount = frag.HopCount
	datagram.HopLimit = frag.HopLimit
	datagram.SourceRoute = append([]MoteId(nil), frag.SourceRoute...)
	return datagram, ""
}

// NumFragments returns the number of distinct fragments buffered for a datagram.
func (rb *ReassemblyBuffers) NumFragments(key Key) int {
	if buf, ok := rb.buffers[key]; ok {
		return len(buf.frags)
	}
	return 0
}

// Len returns the number of datagrams being reassembled.
func (rb *ReassemblyBuffers) Len() int {
	return len(rb.buffers)
}

// Expire releases the buffers whose lifetime ended by asn and returns their keys.
func (rb *ReassemblyBuffers) Expire(asn Asn) []Key {
	var expired []Key
	for key, buf := range rb.buffers {
		if buf.expiration <= asn {
			expired = append(expired, key)
			delete(rb.buffers, key)
		}
	}
	sortKeys(expired)
	return expired
}

// NextExpiration returns the earliest expiration ASN, or Ever without buffers.
func (rb *ReassemblyBuffers) NextExpiration() Asn {
	next := Ever
	for _, buf := range rb.buffers {
		if buf.expiration < next {
			next = buf.expiration
		}
	}
	return next
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Smac != keys[j].Smac {
			return keys[i].Smac < keys[j].Smac
		}
		return keys[i].Tag < keys[j].Tag
	})
}
