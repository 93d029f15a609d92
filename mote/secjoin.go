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

func (m *Mote) setJoined() {
	if m.isJoined {
		return
	}
	m.isJoined = true
	m.env.Sched.Cancel(m.tags.join)
	m.emit(simlog.SecjoinJoined)
	m.startJoinedTimers()
}

// startJoin sends a join request through the timesource, which acts as the join proxy.
func (m *Mote) startJoin() {
	if !m.isSync || m.isJoined {
		return
	}
	req := packet.New(m.now(), m.Id, RootMoteId, &packet.Join{
		Stage:  packet.JoinRequest,
		Pledge: m.Id,
		Proxy:  m.timesource,
	})
	req.Dmac = m.timesource
	m.Enqueue(req)
	m.scheduleIn(m.delaySlots(m.s.SecjoinTimeout), event.PriorityStackTasks, event.KindJoinTimeout, 0, m.tags.join)
}

func (m *Mote) onJoinTimeout() {
	if m.isJoined {
		return
	}
	m.emit(simlog.SecjoinFailed, zap.Int(simlog.KeyNeighbor, m.timesource))
	m.startJoin()
}

func (m *Mote) receiveJoin(p *packet.Packet) {
	join := p.Payload.(*packet.Join)
	switch join.Stage {
	case packet.JoinRequest:
		switch {
		case m.IsRoot():
			m.answerJoin(join)
		case p.Smac == join.Pledge && join.Proxy == m.Id:
			if !m.isJoined {
				m.drop(p, packet.DropNotJoined)
				return
			}
			m.sendIp(packet.New(m.now(), m.Id, RootMoteId, &packet.Join{
				Stage:  packet.JoinRequest,
				Pledge: join.Pledge,
				Proxy:  m.Id,
			}))
		default:
			m.forward(p)
		}
	case packet.JoinResponse:
		switch {
		case join.Pledge == m.Id:
			m.setJoined()
		case join.Proxy == m.Id:
			resp := packet.New(m.now(), m.Id, join.Pledge, &packet.Join{
				Stage:  packet.JoinResponse,
				Pledge: join.Pledge,
				Proxy:  m.Id,
			})
			m.Enqueue(resp)
		default:
			m.forward(p)
		}
	}
}

// answerJoin admits a pledge. A pledge in range of the root gets the response directly.
func (m *Mote) answerJoin(req *packet.Join) {
	resp := &packet.Join{Stage: packet.JoinResponse, Pledge: req.Pledge, Proxy: req.Proxy}
	if req.Proxy == m.Id {
		m.Enqueue(packet.New(m.now(), m.Id, req.Pledge, resp))
		return
	}
	m.sendIp(packet.New(m.now(), m.Id, req.Proxy, resp))
}
