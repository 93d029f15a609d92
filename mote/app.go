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
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func (m *Mote) startApp() {
	if m.IsRoot() {
		return
	}
	if m.s.AppPkPeriod > 0 {
		m.scheduleIn(m.delaySlots(m.jitter(m.s.AppPkPeriod, m.s.AppPkPeriodVar)), event.PriorityStackTasks,
			event.KindAppTimer, 0, m.tags.app)
	}
	if m.s.AppBurstNumPackets > 0 {
		at := Asn(m.s.SecondsToSlots(m.s.AppBurstTimestamp))
		if _, pending := m.env.Sched.IsScheduled(m.tags.appBurst); !pending && at >= m.now() && !m.burstDone {
			m.env.Sched.ScheduleAt(at, event.PriorityStackTasks,
				event.Action{Kind: event.KindAppBurst, Mote: m.Id}, m.tags.appBurst)
		}
	}
}

func (m *Mote) onAppTimer() {
	m.SendSinglePacket()
	m.scheduleIn(m.delaySlots(m.jitter(m.s.AppPkPeriod, m.s.AppPkPeriodVar)), event.PriorityStackTasks,
		event.KindAppTimer, 0, m.tags.app)
}

func (m *Mote) onAppBurst() {
	m.burstDone = true
	for i := 0; i < m.s.AppBurstNumPackets; i++ {
		m.SendSinglePacket()
	}
}

// SendSinglePacket generates one application datagram for the root.
func (m *Mote) SendSinglePacket() {
	m.appCounter++
	m.Counters.AppGenerated++
	size := m.s.AppDatagramLength()
	p := packet.New(m.now(), m.Id, RootMoteId, &packet.Data{AppCounter: m.appCounter, Size: size})
	m.emit(simlog.AppTx,
		zap.Int(simlog.KeyDstIp, RootMoteId),
		zap.Int(simlog.KeyAppCounter, m.appCounter),
		zap.Int(simlog.KeyLength, size),
	)
	m.sendIp(p)
}

func (m *Mote) receiveAppData(p *packet.Packet) {
	data := p.Payload.(*packet.Data)
	m.Counters.AppReceived++
	fields := []zap.Field{
		zap.Int(simlog.KeySrcIp, p.SrcIp),
		zap.Int(simlog.KeyAppCounter, data.AppCounter),
		zap.Int(simlog.KeyHopCount, p.HopCount),
		zap.Uint64(simlog.KeyCreatedAsn, p.CreatedAsn),
		zap.Int(simlog.KeyLength, data.Size),
	}
	m.emit(simlog.AppRx, fields...)
	if !m.IsRoot() {
		return
	}

	m.Counters.AppReachesRoot++
	m.emit(simlog.AppReachesRoot, fields...)
	if m.s.AppEcho && !data.Echo {
		echo := packet.New(m.now(), m.Id, p.SrcIp, &packet.Data{AppCounter: data.AppCounter, Size: data.Size, Echo: true})
		m.sendIp(echo)
	}
}
