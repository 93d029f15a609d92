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

// Package mote implements the protocol stack of a simulated mote: the TSCH slot engine, 6LoWPAN
// fragmentation, RPL, 6P with MSF, the secure join handshake and the application.
package mote

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/atiselsts/6tisch-simulator-sub000/clock"
	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/energy"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/rpl"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	"github.com/atiselsts/6tisch-simulator-sub000/sixlowpan"
	"github.com/atiselsts/6tisch-simulator-sub000/tsch"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Scheduler is the part of the engine used by motes to arm their timers.
type Scheduler interface {
	CurrentAsn() Asn
	ScheduleAt(asn Asn, priority event.Priority, action event.Action, tag string)
	Cancel(tag string) bool
	IsScheduled(tag string) (Asn, bool)
}

// Medium carries the transmissions and listens of a slot.
type Medium interface {
	StartTx(sender MoteId, ch ChannelId, frame *packet.Packet)
	StartRx(listener MoteId, ch ChannelId)
}

// Env is the simulation a mote runs in.
type Env struct {
	Settings *settings.Settings
	Sched    Scheduler
	Log      *simlog.Log
	Medium   Medium
	Conn     connectivity.Matrix
	Energy   *energy.EnergyAnalyser
}

type timerTags struct {
	activeCell string
	frag       string
	app        string
	appBurst   string
	dio        string
	dao        string
	eb         string
	keepAlive  string
	join       string
}

func newTimerTags(id MoteId) timerTags {
	return timerTags{
		activeCell: fmt.Sprintf("tsch-active-%d", id),
		frag:       fmt.Sprintf("frag-%d", id),
		app:        fmt.Sprintf("app-%d", id),
		appBurst:   fmt.Sprintf("app-burst-%d", id),
		dio:        fmt.Sprintf("dio-%d", id),
		dao:        fmt.Sprintf("dao-%d", id),
		eb:         fmt.Sprintf("eb-%d", id),
		keepAlive:  fmt.Sprintf("keepalive-%d", id),
		join:       fmt.Sprintf("join-%d", id),
	}
}

// Mote is one node of the simulated network. Its id is also its MAC and IPv6 address.
type Mote struct {
	Id     MoteId
	Logger *logger.MoteLogger

	env  *Env
	s    *settings.Settings
	rng  *rand.Rand
	tags timerTags

	schedule        *tsch.Schedule
	txQueue         *tsch.TxQueue
	backoff         *tsch.Backoff
	clock           *clock.Clock
	energy          *energy.MoteEnergy
	isSync          bool
	timesource      MoteId
	timesourceHeard bool
	txCell          tsch.ScheduledCell
	sleepFrom       Asn

	fragTags   sixlowpan.TagCounter
	reassembly *sixlowpan.ReassemblyBuffers
	vrb        *sixlowpan.VrbTable

	dodag  *rpl.Dodag
	routes *rpl.SourceRoutes

	sixp sixpState

	isJoined   bool
	appCounter int
	burstDone  bool

	Counters struct {
		AppGenerated   int
		AppReceived    int
		AppReachesRoot int
		Drops          int
		Desyncs        int
		ParentChanges  int
	}
}

// New creates a mote, not yet started.
func New(id MoteId, env *Env, rng *rand.Rand) *Mote {
	s := env.Settings
	m := &Mote{
		Id:         id,
		Logger:     logger.NewMoteLogger(id, env.Sched),
		env:        env,
		s:          s,
		rng:        rng,
		tags:       newTimerTags(id),
		schedule:   tsch.NewSchedule(),
		txQueue:    tsch.NewTxQueue(s.TxQueueSize),
		backoff:    tsch.NewBackoff(s.BackoffMinExp, s.BackoffMaxExp, rng),
		timesource: InvalidMoteId,
		reassembly: sixlowpan.NewReassemblyBuffers(s.FragPhNumReassBuffs, id == RootMoteId,
			s.FragMaxDatagramSize, Asn(s.SecondsToSlots(s.FragLifetime))),
		vrb:   sixlowpan.NewVrbTable(s.FragFfVrbTableSize, Asn(s.SecondsToSlots(s.FragLifetime))),
		dodag: rpl.NewDodag(id, id == RootMoteId, rpl.NewObjectiveFunction(s.RplOf), s.RplParentSwitchThreshold),
		sixp:  newSixpState(),
	}
	if m.IsRoot() {
		m.clock = clock.NewReference(s.SlotDuration)
		m.routes = rpl.NewSourceRoutes(id)
	} else {
		m.clock = clock.New(rng, s.ClockMaxDriftPpm, s.SlotDuration)
	}
	if env.Energy != nil {
		m.energy = env.Energy.AddMote(id)
	} else {
		m.energy = energy.NewEnergyAnalyser().AddMote(id)
	}
	return m
}

func (m *Mote) String() string {
	return GetMoteName(m.Id)
}

func (m *Mote) IsRoot() bool {
	return m.Id == RootMoteId
}

func (m *Mote) IsSync() bool {
	return m.isSync
}

func (m *Mote) IsJoined() bool {
	return m.isJoined
}

func (m *Mote) Timesource() MoteId {
	return m.timesource
}

func (m *Mote) Schedule() *tsch.Schedule {
	return m.schedule
}

func (m *Mote) TxQueue() *tsch.TxQueue {
	return m.txQueue
}

func (m *Mote) Clock() *clock.Clock {
	return m.clock
}

func (m *Mote) Energy() *energy.MoteEnergy {
	return m.energy
}

func (m *Mote) Dodag() *rpl.Dodag {
	return m.dodag
}

// SourceRoutes returns the DAO graph of the root, nil for other motes.
func (m *Mote) SourceRoutes() *rpl.SourceRoutes {
	return m.routes
}

func (m *Mote) Reassembly() *sixlowpan.ReassemblyBuffers {
	return m.reassembly
}

func (m *Mote) Vrb() *sixlowpan.VrbTable {
	return m.vrb
}

func (m *Mote) FragTags() *sixlowpan.TagCounter {
	return &m.fragTags
}

func (m *Mote) now() Asn {
	return m.env.Sched.CurrentAsn()
}

func (m *Mote) emit(typ simlog.Type, fields ...zap.Field) {
	m.env.Log.Emit(typ, m.Id, fields...)
}

func (m *Mote) scheduleIn(delay Asn, prio event.Priority, kind event.Kind, arg int, tag string) {
	m.env.Sched.ScheduleAt(m.now()+delay, prio, event.Action{Kind: kind, Mote: m.Id, Arg: arg}, tag)
}

// delaySlots converts a duration in seconds to a delay of at least one slot.
func (m *Mote) delaySlots(sec float64) Asn {
	d := Asn(m.s.SecondsToSlots(sec))
	if d == 0 {
		d = 1
	}
	return d
}

// jitter returns sec varied uniformly by up to +/- variation (a fraction of sec).
func (m *Mote) jitter(sec float64, variation float64) float64 {
	return sec * (1 + variation*(2*m.rng.Float64()-1))
}

// drop discards a frame and reports why.
func (m *Mote) drop(p *packet.Packet, reason string) {
	m.dropType(p.Type(), reason, zap.Int(simlog.KeySrcIp, p.SrcIp), zap.Int(simlog.KeyDstIp, p.DstIp))
}

func (m *Mote) dropType(t packet.Type, reason string, fields ...zap.Field) {
	m.Counters.Drops++
	m.Logger.Debugf("dropped %s: %s", t, reason)
	fields = append([]zap.Field{
		zap.String(simlog.KeyReason, reason),
		zap.String(simlog.KeyPacketType, t.String()),
	}, fields...)
	m.emit(simlog.PacketDropped, fields...)
}

// Boot starts the mote at the current ASN. The root starts synchronized and joined; other motes
// start listening for enhanced beacons, unless their state was forced before.
func (m *Mote) Boot() {
	if m.IsRoot() && !m.isSync {
		m.sync(RootMoteId)
	}
	if m.isSync {
		m.startTschTimers()
	}
	if m.IsRoot() && !m.isJoined {
		m.setJoined()
	} else if m.isJoined {
		m.startJoinedTimers()
	}
	m.env.Sched.ScheduleAt(m.now(), event.PriorityTschActiveCell,
		event.Action{Kind: event.KindActiveCell, Mote: m.Id}, m.tags.activeCell)
}

// HandleAction executes a pending action of this mote.
func (m *Mote) HandleAction(asn Asn, action event.Action) {
	switch action.Kind {
	case event.KindActiveCell:
		m.activeCell(asn)
	case event.KindEbTimer:
		m.onEbTimer()
	case event.KindKeepAlive:
		m.onKeepAliveTimer()
	case event.KindFragHousekeeping:
		m.onFragHousekeeping(asn)
	case event.KindDioTimer:
		m.onDioTimer()
	case event.KindDaoTimer:
		m.onDaoTimer()
	case event.KindAppTimer:
		m.onAppTimer()
	case event.KindAppBurst:
		m.onAppBurst()
	case event.KindSixpTimeout:
		m.onSixpTimeout(action.Arg)
	case event.KindJoinTimeout:
		m.onJoinTimeout()
	default:
		m.Logger.Panicf("unexpected action %s", action)
	}
}

// ForceSync synchronizes the mote to a timesource without waiting for an enhanced beacon.
func (m *Mote) ForceSync(timesource MoteId) {
	if !m.isSync {
		m.sync(timesource)
	}
}

// ForceJoined marks the mote as joined without running the join handshake.
func (m *Mote) ForceJoined() {
	m.isJoined = true
	m.emit(simlog.SecjoinJoined)
}

// ForceParent installs a preferred parent advertising parentRank.
func (m *Mote) ForceParent(parent MoteId, parentRank uint16) {
	m.dodag.ForceParent(parent, parentRank)
	m.timesource = parent
	m.Logger.Debugf("forced parent %d, rank %d", parent, m.dodag.Rank())
}

// ForceCell installs a cell in the dedicated slotframe.
func (m *Mote) ForceCell(cell tsch.Cell) error {
	return m.addCell(tsch.DedicatedSlotframeHandle, cell)
}

// ForceDao records a DAO at the root without exchanging frames.
func (m *Mote) ForceDao(child, parent MoteId) {
	logger.AssertNotNil(m.routes, "only the root keeps source routes")
	m.routes.AddDao(child, parent)
}
