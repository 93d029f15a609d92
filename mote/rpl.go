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

func (m *Mote) startJoinedTimers() {
	m.scheduleIn(m.delaySlots(m.rng.Float64()*m.s.RplDioPeriod), event.PriorityStackTasks, event.KindDioTimer, 0,
		m.tags.dio)
	if m.IsRoot() {
		return
	}
	m.scheduleIn(m.delaySlots(m.jitter(m.s.RplDaoPeriod, timerJitter)), event.PriorityStackTasks,
		event.KindDaoTimer, 0, m.tags.dao)
	m.startApp()
}

func (m *Mote) onDioTimer() {
	if m.isSync && m.isJoined && m.dodag.HasRank() {
		m.sendDio()
	}
	m.scheduleIn(m.delaySlots(m.jitter(m.s.RplDioPeriod, timerJitter)), event.PriorityStackTasks,
		event.KindDioTimer, 0, m.tags.dio)
}

func (m *Mote) sendDio() {
	queued := m.txQueue.First(func(p *packet.Packet) bool {
		return p.Type() == packet.TypeDio
	})
	if queued != nil {
		return
	}
	dio := packet.New(m.now(), m.Id, BroadcastMoteId, &packet.Dio{Rank: m.dodag.Rank(), DodagId: RootMoteId})
	if m.Enqueue(dio) {
		m.emit(simlog.RplDioTx, zap.Int(simlog.KeyRank, int(m.dodag.Rank())))
	}
}

func (m *Mote) receiveDio(p *packet.Packet) {
	if !m.isJoined {
		return
	}
	dio := p.Payload.(*packet.Dio)
	old := m.dodag.Parent()
	if m.dodag.ReceiveDio(p.Smac, dio.Rank) {
		m.onParentChange(old, m.dodag.Parent())
		return
	}
	if parent := m.dodag.Parent(); parent != InvalidMoteId {
		m.msfRetry(parent)
	}
}

func (m *Mote) onParentChange(old, parent MoteId) {
	m.Counters.ParentChanges++
	m.Logger.Infof("parent changed from %d to %d, rank %d", old, parent, m.dodag.Rank())
	m.emit(simlog.RplChurn,
		zap.Int(simlog.KeyOldParent, old),
		zap.Int(simlog.KeyNewParent, parent),
		zap.Int(simlog.KeyRank, int(m.dodag.Rank())),
	)
	if parent != InvalidMoteId {
		m.timesource = parent
		m.sendDao()
	}
	m.msfOnParentChange(old, parent)
}

func (m *Mote) onDaoTimer() {
	if m.isJoined {
		m.sendDao()
	}
	m.scheduleIn(m.delaySlots(m.jitter(m.s.RplDaoPeriod, timerJitter)), event.PriorityStackTasks,
		event.KindDaoTimer, 0, m.tags.dao)
}

func (m *Mote) sendDao() {
	parent := m.dodag.Parent()
	if m.IsRoot() || parent == InvalidMoteId {
		return
	}
	dao := packet.New(m.now(), m.Id, RootMoteId, &packet.Dao{Child: m.Id, Parent: parent})
	m.emit(simlog.RplDaoTx, zap.Int(simlog.KeyNewParent, parent))
	m.sendIp(dao)
}

func (m *Mote) receiveDao(p *packet.Packet) {
	if !m.IsRoot() {
		return
	}
	dao := p.Payload.(*packet.Dao)
	m.routes.AddDao(dao.Child, dao.Parent)
}
