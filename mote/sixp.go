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
	"fmt"

	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const msfNumCandidates = 5

type sixpTransaction struct {
	command packet.SixpCommand
	seqNum  uint8
}

// sixpState holds the 6P sequence numbers and the outstanding requests of a mote, per peer.
type sixpState struct {
	seqNums map[MoteId]uint8
	pending map[MoteId]*sixpTransaction
}

func newSixpState() sixpState {
	return sixpState{
		seqNums: map[MoteId]uint8{},
		pending: map[MoteId]*sixpTransaction{},
	}
}

func (m *Mote) sixpTimeoutTag(peer MoteId) string {
	return fmt.Sprintf("sixp-%d-%d", m.Id, peer)
}

func (m *Mote) resetSixp() {
	for peer := range m.sixp.pending {
		m.env.Sched.Cancel(m.sixpTimeoutTag(peer))
	}
	m.sixp = newSixpState()
}

func (m *Mote) msfEnabled() bool {
	return m.s.SfClass == settings.SfMsf
}

// msfOnParentChange moves the dedicated cells from the old parent to the new one.
func (m *Mote) msfOnParentChange(old, parent MoteId) {
	if !m.msfEnabled() {
		return
	}
	if old != InvalidMoteId {
		for _, c := range m.schedule.CellsTo(old) {
			m.deleteCell(c.Handle, c.Cell)
		}
		if _, ok := m.sixp.pending[old]; ok {
			delete(m.sixp.pending, old)
			m.env.Sched.Cancel(m.sixpTimeoutTag(old))
		}
		m.sendSixpRequest(old, &packet.SixpRequest{Command: packet.SixpClear})
	}
	if parent != InvalidMoteId {
		m.sixpAdd(parent, m.s.MsfNumCells)
	}
}

// msfRetry asks the parent for cells again after an earlier ADD failed or timed out.
func (m *Mote) msfRetry(parent MoteId) {
	if !m.msfEnabled() || m.schedule.HasDedicatedTxCell(parent) {
		return
	}
	if _, ok := m.sixp.pending[parent]; ok {
		return
	}
	m.sixpAdd(parent, m.s.MsfNumCells)
}

func (m *Mote) sixpAdd(peer MoteId, numCells int) {
	free := m.schedule.FreeSlotOffsets(tsch.DedicatedSlotframeHandle)
	numCandidates := numCells
	if numCandidates < msfNumCandidates {
		numCandidates = msfNumCandidates
	}
	if numCandidates > len(free) {
		numCandidates = len(free)
	}
	if numCandidates == 0 {
		m.Logger.Warnf("no free slot offset to ask %d for cells", peer)
		return
	}
	cells := make([]packet.CellDesc, 0, numCandidates)
	for _, i := range m.rng.Perm(len(free))[:numCandidates] {
		cells = append(cells, packet.CellDesc{
			SlotOffset:    free[i],
			ChannelOffset: m.rng.Intn(m.s.NumChans),
		})
	}
	m.sendSixpRequest(peer, &packet.SixpRequest{Command: packet.SixpAdd, NumCells: numCells, CellList: cells})
}

func (m *Mote) sendSixpRequest(peer MoteId, req *packet.SixpRequest) {
	req.SeqNum = m.sixp.seqNums[peer]
	p := packet.New(m.now(), m.Id, peer, req)
	if !m.Enqueue(p) {
		return
	}
	m.sixp.pending[peer] = &sixpTransaction{command: req.Command, seqNum: req.SeqNum}
	m.emit(simlog.SixpTx,
		zap.Int(simlog.KeyNeighbor, peer),
		zap.String(simlog.KeyPacketType, p.Type().String()),
		zap.String(simlog.KeyCommand, req.Command.String()),
		zap.Int(simlog.KeySeqNum, int(req.SeqNum)),
		zap.Int(simlog.KeyNumCells, req.NumCells),
	)
	m.scheduleIn(m.delaySlots(m.s.SixpTimeout), event.PriorityStackTasks, event.KindSixpTimeout, peer,
		m.sixpTimeoutTag(peer))
}

func (m *Mote) onSixpTimeout(peer MoteId) {
	tx, ok := m.sixp.pending[peer]
	if !ok {
		return
	}
	delete(m.sixp.pending, peer)
	stale := m.txQueue.First(func(p *packet.Packet) bool {
		return p.Type() == packet.TypeSixpRequest && p.Dmac == peer
	})
	if stale != nil {
		m.txQueue.Remove(stale)
	}
	m.emit(simlog.SixpTimeout,
		zap.Int(simlog.KeyNeighbor, peer),
		zap.String(simlog.KeyCommand, tx.command.String()),
		zap.Int(simlog.KeySeqNum, int(tx.seqNum)),
	)
}

func (m *Mote) receiveSixp(p *packet.Packet) {
	switch msg := p.Payload.(type) {
	case *packet.SixpRequest:
		m.emit(simlog.SixpRx,
			zap.Int(simlog.KeyNeighbor, p.Smac),
			zap.String(simlog.KeyPacketType, p.Type().String()),
			zap.String(simlog.KeyCommand, msg.Command.String()),
			zap.Int(simlog.KeySeqNum, int(msg.SeqNum)),
		)
		m.respondSixp(p.Smac, msg)
	case *packet.SixpResponse:
		m.emit(simlog.SixpRx,
			zap.Int(simlog.KeyNeighbor, p.Smac),
			zap.String(simlog.KeyPacketType, p.Type().String()),
			zap.String(simlog.KeyCommand, msg.Command.String()),
			zap.Int(simlog.KeySeqNum, int(msg.SeqNum)),
			zap.String(simlog.KeyReturnCode, msg.ReturnCode.String()),
		)
		m.receiveSixpResponse(p.Smac, msg)
	}
}

func (m *Mote) respondSixp(peer MoteId, req *packet.SixpRequest) {
	resp := &packet.SixpResponse{Command: req.Command, SeqNum: req.SeqNum, ReturnCode: packet.SixpRcSuccess}
	switch req.Command {
	case packet.SixpAdd:
		free := map[int]bool{}
		for _, offset := range m.schedule.FreeSlotOffsets(tsch.DedicatedSlotframeHandle) {
			free[offset] = true
		}
		for _, c := range req.CellList {
			if len(resp.CellList) == req.NumCells {
				break
			}
			if free[c.SlotOffset] {
				resp.CellList = append(resp.CellList, c)
				free[c.SlotOffset] = false
			}
		}
		if len(resp.CellList) == 0 {
			resp.ReturnCode = packet.SixpRcErr
		}
	case packet.SixpDelete:
		for _, c := range req.CellList {
			if cell, ok := m.dedicatedCell(c.SlotOffset); ok && cell.Neighbor == peer {
				m.deleteCell(tsch.DedicatedSlotframeHandle, cell)
				resp.CellList = append(resp.CellList, c)
			}
		}
	case packet.SixpClear:
		for _, c := range m.schedule.CellsTo(peer) {
			m.deleteCell(c.Handle, c.Cell)
		}
		m.dodag.RemoveChild(peer)
	default:
		resp.ReturnCode = packet.SixpRcErr
	}
	m.Enqueue(packet.New(m.now(), m.Id, peer, resp))
}

func (m *Mote) dedicatedCell(slotOffset int) (tsch.Cell, bool) {
	sf := m.schedule.Slotframe(tsch.DedicatedSlotframeHandle)
	if sf == nil {
		return tsch.Cell{}, false
	}
	return sf.Cell(slotOffset)
}

// onSixpResponseSent installs the cells granted by an ADD response once the requester has
// acknowledged it.
func (m *Mote) onSixpResponseSent(peer MoteId, resp *packet.SixpResponse) {
	if resp.Command != packet.SixpAdd || resp.ReturnCode != packet.SixpRcSuccess {
		return
	}
	m.installCells(peer, resp.CellList, tsch.OptionRx)
	m.dodag.AddChild(peer)
}

func (m *Mote) receiveSixpResponse(peer MoteId, resp *packet.SixpResponse) {
	tx, ok := m.sixp.pending[peer]
	if !ok || tx.seqNum != resp.SeqNum || tx.command != resp.Command {
		m.Logger.Debugf("ignoring unexpected 6P response %s seqnum %d from %d", resp.Command, resp.SeqNum, peer)
		return
	}
	delete(m.sixp.pending, peer)
	m.env.Sched.Cancel(m.sixpTimeoutTag(peer))

	if resp.Command == packet.SixpClear {
		delete(m.sixp.seqNums, peer)
		return
	}
	m.sixp.seqNums[peer]++
	if resp.Command == packet.SixpAdd && resp.ReturnCode == packet.SixpRcSuccess {
		m.installCells(peer, resp.CellList, tsch.OptionTx)
	}
}

func (m *Mote) installCells(peer MoteId, cells []packet.CellDesc, options tsch.CellOption) {
	for _, c := range cells {
		cell := tsch.Cell{SlotOffset: c.SlotOffset, ChannelOffset: c.ChannelOffset, Options: options, Neighbor: peer}
		if err := m.addCell(tsch.DedicatedSlotframeHandle, cell); err != nil {
			m.Logger.Warnf("cannot install cell from 6P: %v", err)
		}
	}
}
