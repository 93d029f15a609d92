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
	"math"

	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/energy"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const timerJitter = 0.1

func (m *Mote) sync(timesource MoteId) {
	m.isSync = true
	m.timesource = timesource
	m.timesourceHeard = true
	m.clock.Sync(m.now())
	m.schedule.AddSlotframe(tsch.MinimalSlotframeHandle, m.s.SlotframeLength)
	m.schedule.AddSlotframe(tsch.DedicatedSlotframeHandle, m.s.SlotframeLength)
	m.emit(simlog.TschSync, zap.Int(simlog.KeyNeighbor, timesource))
	if err := m.addCell(tsch.MinimalSlotframeHandle, tsch.MinimalCell()); err != nil {
		m.Logger.Panicf("installing minimal cell: %v", err)
	}
}

func (m *Mote) desync() {
	m.Logger.Infof("desynchronized, drift %.0f us", m.clock.DriftUs(m.now()))
	m.isSync = false
	m.isJoined = false
	m.Counters.Desyncs++
	for _, f := range m.txQueue.Flush() {
		m.drop(f, packet.DropDesync)
	}
	m.schedule.Reset()
	m.txCell = tsch.ScheduledCell{}
	m.emit(simlog.TschDesync)

	if old := m.dodag.Parent(); old != InvalidMoteId {
		m.dodag.Detach()
		m.emit(simlog.RplChurn,
			zap.Int(simlog.KeyOldParent, old),
			zap.Int(simlog.KeyNewParent, InvalidMoteId),
			zap.Int(simlog.KeyRank, int(m.dodag.Rank())),
		)
	} else {
		m.dodag.Detach()
	}
	m.resetSixp()
	m.timesource = InvalidMoteId

	for _, tag := range []string{m.tags.eb, m.tags.keepAlive, m.tags.dio, m.tags.dao, m.tags.app, m.tags.join} {
		m.env.Sched.Cancel(tag)
	}
}

func (m *Mote) startTschTimers() {
	m.scheduleIn(m.delaySlots(m.rng.Float64()*m.s.EbPeriod), event.PriorityStackTasks, event.KindEbTimer, 0,
		m.tags.eb)
	if !m.IsRoot() {
		m.scheduleIn(m.delaySlots(m.s.KeepAliveInterval), event.PriorityStackTasks, event.KindKeepAlive, 0,
			m.tags.keepAlive)
	}
}

// Enqueue queues a frame for transmission. A refused frame is dropped.
func (m *Mote) Enqueue(p *packet.Packet) bool {
	if !m.isSync {
		m.drop(p, packet.DropDesync)
		return false
	}
	p.RetriesLeft = m.s.MaxTxRetries
	if ok, reason := m.txQueue.Enqueue(p); !ok {
		m.drop(p, reason)
		return false
	}

	fields := []zap.Field{
		zap.String(simlog.KeyPacketType, p.Type().String()),
		zap.Int(simlog.KeySrcIp, p.SrcIp),
		zap.Int(simlog.KeyDstIp, p.DstIp),
		zap.Int(simlog.KeyDmac, p.Dmac),
	}
	if f, ok := p.Payload.(*packet.Frag); ok {
		fields = append(fields, zap.Int(simlog.KeyTag, int(f.DatagramTag)), zap.Int(simlog.KeyOffset, f.DatagramOffset))
	}
	m.emit(simlog.TschEnqueue, fields...)
	return true
}

func (m *Mote) addCell(handle int, cell tsch.Cell) error {
	if err := m.schedule.AddCell(handle, cell, false); err != nil {
		return err
	}
	m.emit(simlog.TschAddCell,
		zap.Int(simlog.KeyHandle, handle),
		zap.Int(simlog.KeySlotOffset, cell.SlotOffset),
		zap.Int(simlog.KeyChOffset, cell.ChannelOffset),
		zap.String(simlog.KeyCellOptions, cell.Options.String()),
		zap.Int(simlog.KeyNeighbor, cell.Neighbor),
	)
	m.rescheduleActiveCell()
	return nil
}

func (m *Mote) deleteCell(handle int, cell tsch.Cell) {
	if !m.schedule.DeleteCell(handle, cell.SlotOffset) {
		return
	}
	m.emit(simlog.TschDeleteCell,
		zap.Int(simlog.KeyHandle, handle),
		zap.Int(simlog.KeySlotOffset, cell.SlotOffset),
		zap.Int(simlog.KeyChOffset, cell.ChannelOffset),
		zap.String(simlog.KeyCellOptions, cell.Options.String()),
		zap.Int(simlog.KeyNeighbor, cell.Neighbor),
	)
}

func (m *Mote) scheduleActiveCellAt(asn Asn) {
	m.env.Sched.ScheduleAt(asn, event.PriorityTschActiveCell,
		event.Action{Kind: event.KindActiveCell, Mote: m.Id}, m.tags.activeCell)
}

// rescheduleActiveCell makes sure the next active cell is not missed after a schedule change. A
// pending wake-up that comes earlier is kept.
func (m *Mote) rescheduleActiveCell() {
	cur := m.now()
	next := m.schedule.NextActiveAsn(cur)
	if next == Ever {
		return
	}
	if pending, ok := m.env.Sched.IsScheduled(m.tags.activeCell); ok && pending >= cur && pending <= next {
		return
	}
	m.scheduleActiveCellAt(next)
}

func (m *Mote) activeCell(asn Asn) {
	if asn > m.sleepFrom {
		m.energy.RecordSleep(asn - m.sleepFrom)
	}
	m.sleepFrom = asn + 1

	if !m.isSync {
		ch := MinChannelNumber + m.rng.Intn(m.s.NumChans)
		m.env.Medium.StartRx(m.Id, ch)
		m.scheduleActiveCellAt(asn + 1)
		return
	}
	if !m.IsRoot() && math.Abs(m.clock.DriftUs(asn)) > m.s.GuardTimeUs {
		m.desync()
		m.energy.RecordSlot(asn, energy.ActivitySleep)
		m.scheduleActiveCellAt(asn + 1)
		return
	}

	if next := m.schedule.NextActiveAsn(asn); next != Ever {
		m.scheduleActiveCellAt(next)
	}

	cell, ok := m.schedule.ActiveCell(asn)
	if !ok {
		m.energy.RecordSlot(asn, energy.ActivitySleep)
		return
	}
	ch := tsch.PhysicalChannel(asn, cell.ChannelOffset, m.s.NumChans)
	if cell.IsTx() {
		if frame := m.selectFrame(cell.Cell); frame != nil {
			m.txCell = cell
			m.env.Medium.StartTx(m.Id, ch, frame)
			return
		}
	}
	if cell.IsRx() {
		m.env.Medium.StartRx(m.Id, ch)
		return
	}
	m.energy.RecordSlot(asn, energy.ActivitySleep)
}

// selectFrame returns the frame to send in a TX cell, or nil. A dedicated cell carries frames for
// its neighbor; a shared cell carries broadcast frames and frames for neighbors without a
// dedicated TX cell, when the backoff allows it.
func (m *Mote) selectFrame(cell tsch.Cell) *packet.Packet {
	if !cell.IsShared() {
		return m.txQueue.First(func(p *packet.Packet) bool {
			return !p.IsBroadcast() && p.Dmac == cell.Neighbor
		})
	}
	frame := m.txQueue.First(func(p *packet.Packet) bool {
		if p.IsBroadcast() {
			return true
		}
		if cell.Neighbor != BroadcastMoteId && cell.Neighbor != p.Dmac {
			return false
		}
		return !m.schedule.HasDedicatedTxCell(p.Dmac)
	})
	if frame == nil {
		return nil
	}
	if !m.backoff.CanTransmit() {
		m.backoff.Skip()
		return nil
	}
	return frame
}

// TxDone handles the outcome of a transmission made in the current slot.
func (m *Mote) TxDone(asn Asn, frame *packet.Packet, acked bool) {
	cell := m.txCell
	m.txCell = tsch.ScheduledCell{}
	m.emit(simlog.TschTxDone,
		zap.String(simlog.KeyPacketType, frame.Type().String()),
		zap.Int(simlog.KeyDmac, frame.Dmac),
		zap.Bool(simlog.KeyAcked, acked),
		zap.Int(simlog.KeySlotOffset, cell.SlotOffset),
	)

	if frame.IsBroadcast() {
		m.energy.RecordSlot(asn, energy.ActivityTxData)
		m.txQueue.Remove(frame)
		if frame.Type() == packet.TypeEb {
			m.emit(simlog.TschEbTx, zap.Int(simlog.KeyRank, int(m.dodag.Rank())))
		}
		return
	}

	m.dodag.RecordTx(frame.Dmac, acked)
	if acked {
		m.energy.RecordSlot(asn, energy.ActivityTxDataRxAck)
		m.txQueue.Remove(frame)
		m.backoff.OnSuccess()
		if frame.Dmac == m.timesource {
			m.clock.Sync(asn)
			m.timesourceHeard = true
		}
		m.onFrameAcked(frame)
		return
	}

	m.energy.RecordSlot(asn, energy.ActivityTxData)
	if cell.IsShared() {
		m.backoff.OnFailure()
	}
	frame.RetriesLeft--
	if frame.RetriesLeft < 0 {
		m.txQueue.Remove(frame)
		m.drop(frame, packet.DropMaxRetries)
	}
}

func (m *Mote) onFrameAcked(frame *packet.Packet) {
	if resp, ok := frame.Payload.(*packet.SixpResponse); ok {
		m.onSixpResponseSent(frame.Dmac, resp)
	}
}

// RxDone handles a frame received in the current slot, or nil after an idle listen. It returns
// whether the frame is acknowledged.
func (m *Mote) RxDone(asn Asn, ch ChannelId, frame *packet.Packet) bool {
	if frame == nil {
		if m.isSync {
			m.energy.RecordSlot(asn, energy.ActivityIdle)
		} else {
			m.energy.RecordSlot(asn, energy.ActivityIdleNotSync)
		}
		return false
	}
	if !m.isSync {
		m.energy.RecordSlot(asn, energy.ActivityRxData)
		if frame.Type() == packet.TypeEb {
			m.receiveEb(frame)
		}
		return false
	}

	toMe := !frame.IsBroadcast() && frame.Dmac == m.Id
	if !toMe && !frame.IsBroadcast() {
		m.energy.RecordSlot(asn, energy.ActivityRxData)
		return false
	}
	if toMe {
		m.energy.RecordSlot(asn, energy.ActivityRxDataTxAck)
	} else {
		m.energy.RecordSlot(asn, energy.ActivityRxData)
	}

	m.emit(simlog.TschRxDone,
		zap.String(simlog.KeyPacketType, frame.Type().String()),
		zap.Int(simlog.KeySmac, frame.Smac),
		zap.Int(simlog.KeyDmac, frame.Dmac),
		zap.Int(simlog.KeyChannel, ch),
	)
	if frame.Smac == m.timesource {
		m.clock.Sync(asn)
		m.timesourceHeard = true
	}

	switch frame.Type() {
	case packet.TypeFrag:
		m.receiveFrag(frame, asn)
	case packet.TypeData, packet.TypeDao:
		m.receiveIp(frame)
	case packet.TypeDio:
		m.receiveDio(frame)
	case packet.TypeSixpRequest, packet.TypeSixpResponse:
		m.receiveSixp(frame)
	case packet.TypeEb:
		m.receiveEb(frame)
	case packet.TypeJoin:
		m.receiveJoin(frame)
	case packet.TypeKeepAlive:
		break
	default:
		m.drop(frame, packet.DropUnhandledType)
	}
	return toMe
}

func (m *Mote) receiveEb(frame *packet.Packet) {
	if m.isSync {
		return
	}
	m.Logger.Debugf("synchronized to %d", frame.Smac)
	m.sync(frame.Smac)
	m.startTschTimers()
	if m.s.SecjoinEnabled {
		m.startJoin()
	} else {
		m.setJoined()
	}
}

func (m *Mote) onEbTimer() {
	if !m.isSync {
		return
	}
	if m.IsRoot() || (m.isJoined && m.dodag.HasRank()) {
		queued := m.txQueue.First(func(p *packet.Packet) bool {
			return p.Type() == packet.TypeEb
		})
		if queued == nil {
			eb := packet.New(m.now(), m.Id, BroadcastMoteId, &packet.Eb{JoinMetric: m.dodag.DagRank()})
			m.Enqueue(eb)
		}
	}
	m.scheduleIn(m.delaySlots(m.jitter(m.s.EbPeriod, timerJitter)), event.PriorityStackTasks, event.KindEbTimer,
		0, m.tags.eb)
}

func (m *Mote) onKeepAliveTimer() {
	if !m.isSync || m.IsRoot() {
		return
	}
	if !m.timesourceHeard && m.timesource != InvalidMoteId {
		queued := m.txQueue.First(func(p *packet.Packet) bool {
			return p.Type() == packet.TypeKeepAlive
		})
		if queued == nil {
			m.Enqueue(packet.New(m.now(), m.Id, m.timesource, &packet.KeepAlive{}))
		}
	}
	m.timesourceHeard = false
	m.scheduleIn(m.delaySlots(m.s.KeepAliveInterval), event.PriorityStackTasks, event.KindKeepAlive, 0,
		m.tags.keepAlive)
}
