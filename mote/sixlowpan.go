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

package mote

import (
	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/sixlowpan"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// nextHop returns the link-layer destination of an IP packet: the next hop of its source route when
// going down, the preferred parent when going up. The source route is consumed by one hop.
func (m *Mote) nextHop(p *packet.Packet) (MoteId, bool) {
	if p.DstIp == BroadcastMoteId {
		return BroadcastMoteId, true
	}
	if len(p.SourceRoute) > 0 {
		next := p.SourceRoute[0]
		p.SourceRoute = p.SourceRoute[1:]
		return next, true
	}
	if m.IsRoot() {
		route := m.routes.ComputeSourceRoute(p.DstIp)
		if route == nil {
			return InvalidMoteId, false
		}
		p.SourceRoute = route[1:]
		return route[0], true
	}
	if parent := m.dodag.Parent(); parent != InvalidMoteId {
		return parent, true
	}
	return InvalidMoteId, false
}

// sendIp routes a packet to its next hop, fragmenting it when it does not fit in a frame.
func (m *Mote) sendIp(p *packet.Packet) bool {
	next, ok := m.nextHop(p)
	if !ok {
		m.drop(p, packet.DropNoRoute)
		return false
	}
	p.Smac = m.Id
	p.Dmac = next
	p.HopCount++
	if p.Length() <= m.s.MaxPayloadLen {
		return m.Enqueue(p)
	}

	tag := m.fragTags.Next()
	frags := sixlowpan.Cut(p, m.s.MaxPayloadLen, tag)
	if m.isSync && m.txQueue.Capacity()-m.txQueue.Len() < len(frags) {
		m.drop(p, tsch.DropReasonQueueFull(packet.TypeFrag))
		return false
	}
	for _, f := range frags {
		frag := f.Payload.(*packet.Frag)
		m.emit(simlog.SixlowpanFragGen,
			zap.Int(simlog.KeySrcIp, p.SrcIp),
			zap.Int(simlog.KeyDstIp, p.DstIp),
			zap.Int(simlog.KeyTag, int(tag)),
			zap.Int(simlog.KeyOffset, frag.DatagramOffset),
			zap.Int(simlog.KeyLength, frag.Size),
			zap.Int(simlog.KeySize, frag.DatagramSize),
		)
		if !m.Enqueue(f) {
			return false
		}
	}
	return true
}

func (m *Mote) receiveIp(p *packet.Packet) {
	if p.DstIp == m.Id {
		m.deliver(p)
		return
	}
	m.forward(p)
}

func (m *Mote) forward(p *packet.Packet) {
	p.HopLimit--
	if p.HopLimit <= 0 {
		m.drop(p, packet.DropHopLimit)
		return
	}
	m.sendIp(p)
}

func (m *Mote) deliver(p *packet.Packet) {
	switch p.Payload.(type) {
	case *packet.Data:
		m.receiveAppData(p)
	case *packet.Dao:
		m.receiveDao(p)
	case *packet.Join:
		m.receiveJoin(p)
	default:
		m.drop(p, packet.DropUnhandledType)
	}
}

func (m *Mote) receiveFrag(f *packet.Packet, asn Asn) {
	frag := f.Payload.(*packet.Frag)
	key := sixlowpan.Key{Smac: f.Smac, Tag: frag.DatagramTag}
	if m.s.Fragmentation == settings.FragFragmentForwarding && f.DstIp != m.Id {
		m.forwardFragment(f, frag, key, asn)
		return
	}

	datagram, reason := m.reassembly.Add(key, f, asn)
	if reason != "" {
		m.drop(f, reason)
		return
	}
	m.scheduleFragHousekeeping()
	if datagram == nil {
		return
	}
	m.emit(simlog.SixlowpanReassembled,
		zap.Int(simlog.KeySrcIp, datagram.SrcIp),
		zap.Int(simlog.KeyDstIp, datagram.DstIp),
		zap.Int(simlog.KeySmac, key.Smac),
		zap.Int(simlog.KeyTag, int(key.Tag)),
		zap.Int(simlog.KeySize, frag.DatagramSize),
	)
	m.receiveIp(datagram)
}

// forwardFragment relays a fragment using the virtual reassembly buffer of its datagram, created by
// the first fragment.
func (m *Mote) forwardFragment(f *packet.Packet, frag *packet.Frag, key sixlowpan.Key, asn Asn) {
	f.HopLimit--
	if f.HopLimit <= 0 {
		m.removeVrbEntry(key, packet.DropHopLimit)
		m.drop(f, packet.DropHopLimit)
		return
	}
	entry, ok := m.vrb.Lookup(key)
	if !ok {
		if !frag.IsFirst() {
			m.drop(f, packet.DropNoVrbEntry)
			return
		}
		next, routed := m.nextHop(f)
		if !routed {
			m.drop(f, packet.DropNoRoute)
			return
		}
		var reason string
		if entry, reason = m.vrb.Add(key, m.fragTags.Next(), next, frag.DatagramSize, asn); reason != "" {
			m.drop(f, reason)
			return
		}
		m.emit(simlog.SixlowpanVrbAdd,
			zap.Int(simlog.KeySmac, key.Smac),
			zap.Int(simlog.KeyTag, int(key.Tag)),
			zap.Int(simlog.KeyNeighbor, next),
		)
		m.scheduleFragHousekeeping()
	} else if len(f.SourceRoute) > 0 {
		f.SourceRoute = f.SourceRoute[1:]
	}

	switch {
	case frag.DatagramOffset < entry.NextOffset:
		m.Logger.Debugf("ignoring duplicate fragment %d/%d offset %d", key.Smac, key.Tag, frag.DatagramOffset)
		return
	case frag.DatagramOffset > entry.NextOffset && m.s.HasVrbPolicy(settings.VrbPolicyMissingFragment):
		m.removeVrbEntry(key, packet.DropMissingFragment)
		m.drop(f, packet.DropMissingFragment)
		return
	}
	entry.NextOffset = frag.DatagramOffset + frag.Size

	frag.DatagramTag = entry.OutgoingTag
	f.Smac = m.Id
	f.Dmac = entry.NextHop
	f.HopCount++
	m.Enqueue(f)

	if frag.IsLast() && m.s.HasVrbPolicy(settings.VrbPolicyLastFragment) {
		m.removeVrbEntry(key, settings.VrbPolicyLastFragment)
	}
}

func (m *Mote) removeVrbEntry(key sixlowpan.Key, reason string) {
	if !m.vrb.Remove(key) {
		return
	}
	m.emit(simlog.SixlowpanVrbRemove,
		zap.Int(simlog.KeySmac, key.Smac),
		zap.Int(simlog.KeyTag, int(key.Tag)),
		zap.String(simlog.KeyReason, reason),
	)
	m.scheduleFragHousekeeping()
}

func (m *Mote) scheduleFragHousekeeping() {
	next := m.reassembly.NextExpiration()
	if vrbNext := m.vrb.NextExpiration(); vrbNext < next {
		next = vrbNext
	}
	if next == Ever {
		m.env.Sched.Cancel(m.tags.frag)
		return
	}
	if now := m.now(); next < now {
		next = now
	}
	m.env.Sched.ScheduleAt(next, event.PriorityStartSlot,
		event.Action{Kind: event.KindFragHousekeeping, Mote: m.Id}, m.tags.frag)
}

func (m *Mote) onFragHousekeeping(asn Asn) {
	for _, key := range m.reassembly.Expire(asn) {
		m.dropType(packet.TypeFrag, packet.DropReassemblyTimeout,
			zap.Int(simlog.KeySmac, key.Smac),
			zap.Int(simlog.KeyTag, int(key.Tag)),
		)
	}
	for _, key := range m.vrb.Expire(asn) {
		m.emit(simlog.SixlowpanVrbRemove,
			zap.Int(simlog.KeySmac, key.Smac),
			zap.Int(simlog.KeyTag, int(key.Tag)),
			zap.String(simlog.KeyReason, "expired"),
		)
	}
	m.scheduleFragHousekeeping()
}
