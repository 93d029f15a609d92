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
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// VrbEntry tells a forwarding hop where to send the fragments of a datagram.
type VrbEntry struct {
	OutgoingTag  uint16
	NextHop      MoteId
	Expiration   Asn
	NextOffset   int // offset of the next expected fragment
	DatagramSize int
}

// VrbTable is the virtual reassembly buffer table of a mote forwarding fragments.
type VrbTable struct {
	capacity int
	lifetime Asn
	entries  map[Key]*VrbEntry
}

func NewVrbTable(capacity int, lifetime Asn) *VrbTable {
	return &VrbTable{
		capacity: capacity,
		lifetime: lifetime,
		entries:  make(map[Key]*VrbEntry),
	}
}

// Lookup returns the entry of a datagram.
func (vt *VrbTable) Lookup(key Key) (*VrbEntry, bool) {
	e, ok := vt.entries[key]
	return e, ok
}

// Add creates the entry of a datagram whose first fragment was received at asn. It returns the drop
// reason when the table is full.
func (vt *VrbTable) Add(key Key, outgoingTag uint16, nextHop MoteId, datagramSize int, asn Asn) (*VrbEntry, string) {
	if e, ok := vt.entries[key]; ok {
		return e, ""
	}
	if len(vt.entries) >= vt.capacity {
		return nil, packet.DropVrbTableFull
	}
	e := &VrbEntry{
		OutgoingTag:  outgoingTag,
		NextHop:      nextHop,
		Expiration:   asn + vt.lifetime,
		DatagramSize: datagramSize,
	}
	vt.entries[key] = e
	return e, ""
}

// Remove deletes the entry of a datagram, returning whether it existed.
func (vt *VrbTable) Remove(key Key) bool {
	if _, ok := vt.entries[key]; !ok {
		return false
	}
	delete(vt.entries, key)
	return true
}

func (vt *VrbTable) Len() int {
	return len(vt.entries)
}

// Expire removes the entries whose lifetime ended by asn and returns their keys.
func (vt *VrbTable) Expire(asn Asn) []Key {
	var expired []Key
	for key, e := range vt.entries {
		if e.Expiration <= asn {
			expired = append(expired, key)
			delete(vt.entries, key)
		}
	}
	sortKeys(expired)
	return expired
}

// NextExpiration returns the earliest expiration ASN, or Ever without entries.
func (vt *VrbTable) NextExpiration() Asn {
	next := Ever
	for _, e := range vt.entries {
		if e.Expiration < next {
			next = e.Expiration
		}
	}
	return next
}
