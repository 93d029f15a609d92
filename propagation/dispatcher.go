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

// Package propagation resolves, once per slot, which of the registered transmissions are received
// by which listeners.
package propagation

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const PropagateTag = "propagate"

// Radio is the receiving and transmitting end of a mote.
type Radio interface {
	// RxDone delivers a received frame, or nil after an idle listen. For a unicast frame addressed
	// to the mote, the return value tells whether it is acknowledged.
	RxDone(asn Asn, ch ChannelId, frame *packet.Packet) bool
	// TxDone reports the end of a transmission. Broadcast frames are never acknowledged.
	TxDone(asn Asn, frame *packet.Packet, acked bool)
}

// Scheduler is the part of the engine the dispatcher needs.
type Scheduler interface {
	CurrentAsn() Asn
	ScheduleAt(asn Asn, priority event.Priority, action event.Action, tag string)
}

type transmission struct {
	sender MoteId
	ch     ChannelId
	frame  *packet.Packet

	acked     bool
	receivers []int
}

type listen struct {
	listener MoteId
	ch       ChannelId
}

// Dispatcher collects the transmissions and listens registered during a slot, and resolves them in
// the propagate event of that slot.
type Dispatcher struct {
	sched  Scheduler
	conn   connectivity.Matrix
	interf Interference
	rng    *rand.Rand
	log    *simlog.Log
	radios map[MoteId]Radio

	slotAsn Asn
	pending bool
	txs     []*transmission
	rxs     []listen

	Counters struct {
		Transmissions uint64
		Receptions    uint64
		IdleListens   uint64
		Collisions    uint64
	}
}

func NewDispatcher(sched Scheduler, conn connectivity.Matrix, interf Interference, rng *rand.Rand, log *simlog.Log) *Dispatcher {
	return &Dispatcher{
		sched:  sched,
		conn:   conn,
		interf: interf,
		rng:    rng,
		log:    log,
		radios: make(map[MoteId]Radio),
	}
}

// Attach registers the radio of a mote.
func (d *Dispatcher) Attach(id MoteId, r Radio) {
	d.radios[id] = r
}

func (d *Dispatcher) Interference() Interference {
	return d.interf
}

func (d *Dispatcher) radio(id MoteId) Radio {
	r, ok := d.radios[id]
	if !ok {
		logger.Panicf("no radio attached for mote %d", id)
	}
	return r
}

func (d *Dispatcher) register() {
	asn := d.sched.CurrentAsn()
	if d.pending {
		logger.AssertEqual(d.slotAsn, asn, "registration for ASN %d while slot %d is pending", asn, d.slotAsn)
		return
	}
	d.pending = true
	d.slotAsn = asn
	d.sched.ScheduleAt(asn, event.PriorityPropagate, event.Action{Kind: event.KindPropagate}, PropagateTag)
}

// StartTx registers a transmission of frame by sender on a physical channel in the current slot.
func (d *Dispatcher) StartTx(sender MoteId, ch ChannelId, frame *packet.Packet) {
	d.register()
	d.txs = append(d.txs, &transmission{sender: sender, ch: ch, frame: frame})
}

// StartRx registers listener as listening on a physical channel in the current slot.
func (d *Dispatcher) StartRx(listener MoteId, ch ChannelId) {
	d.register()
	d.rxs = append(d.rxs, listen{listener: listener, ch: ch})
}

// Propagate resolves the current slot: every listener receives at most one frame, then every
// sender learns the outcome of its transmission.
func (d *Dispatcher) Propagate(asn Asn) {
	txs, rxs := d.txs, d.rxs
	d.txs, d.rxs, d.pending = nil, nil, false

	sending := make(map[MoteId]bool, len(txs))
	for _, tx := range txs {
		sending[tx.sender] = true
	}
	sort.SliceStable(rxs, func(i, j int) bool {
		return rxs[i].listener < rxs[j].listener
	})

	for _, rx := range rxs {
		if sending[rx.listener] {
			continue
		}
		d.resolveListen(asn, rx, txs)
	}

	for _, tx := range txs {
		d.Counters.Transmissions++
		d.log.Emit(simlog.PropTransmission, tx.sender,
			zap.Int(simlog.KeyChannel, tx.ch),
			zap.String(simlog.KeyPacketType, tx.frame.Type().String()),
			zap.Int(simlog.KeyDmac, tx.frame.Dmac),
			zap.Ints(simlog.KeyReceivers, tx.receivers),
			zap.Bool(simlog.KeyAcked, tx.acked),
		)
		d.radio(tx.sender).TxDone(asn, tx.frame, tx.acked)
	}
}

func (d *Dispatcher) resolveListen(asn Asn, rx listen, txs []*transmission) {
	r := d.radio(rx.listener)

	var lock *transmission
	var heard []Signal
	lockIdx := -1
	for _, tx := range txs {
		if tx.ch != rx.ch {
			continue
		}
		link := d.conn.GetLink(tx.sender, rx.listener, rx.ch)
		if link.Pdr <= 0 {
			continue
		}
		heard = append(heard, Signal{Sender: tx.sender, Pdr: link.Pdr, Rssi: link.Rssi})
		last := len(heard) - 1
		if lock == nil || link.Rssi > heard[lockIdx].Rssi ||
			(link.Rssi == heard[lockIdx].Rssi && tx.sender < lock.sender) {
			lock, lockIdx = tx, last
		}
	}
	if lock == nil {
		d.idle(asn, rx, r)
		return
	}

	reception := &Reception{
		Listener: rx.listener,
		Channel:  rx.ch,
		Signal:   heard[lockIdx],
	}
	for i, s := range heard {
		if i != lockIdx {
			reception.Interferers = append(reception.Interferers, s)
		}
	}

	pdr := d.interf.EffectivePdr(reception)
	if d.rng.Float64() >= pdr {
		if len(reception.Interferers) > 0 {
			d.Counters.Collisions++
			d.log.Emit(simlog.PropCollision, rx.listener,
				zap.Int(simlog.KeyNeighbor, lock.sender),
				zap.Int(simlog.KeyChannel, rx.ch),
				zap.Float64(simlog.KeyPdr, pdr),
			)
		}
		d.idle(asn, rx, r)
		return
	}

	switch {
	case lock.frame.IsBroadcast():
		r.RxDone(asn, rx.ch, lock.frame.Clone())
	case lock.frame.Dmac == rx.listener:
		if r.RxDone(asn, rx.ch, lock.frame.Clone()) {
			lock.acked = true
		}
	default:
		// unicast to another mote: the frame is filtered and not acknowledged
		d.idle(asn, rx, r)
		return
	}
	d.Counters.Receptions++
	lock.receivers = append(lock.receivers, rx.listener)
}

func (d *Dispatcher) idle(asn Asn, rx listen, r Radio) {
	d.Counters.IdleListens++
	r.RxDone(asn, rx.ch, nil)
}
