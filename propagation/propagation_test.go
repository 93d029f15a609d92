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

package propagation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/packet"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type fakeRadio struct {
	ack    bool
	rx     []*packet.Packet
	idle   int
	txDone []bool
}

func (r *fakeRadio) RxDone(asn Asn, ch ChannelId, frame *packet.Packet) bool {
	if frame == nil {
		r.idle++
		return false
	}
	r.rx = append(r.rx, frame)
	return r.ack && !frame.IsBroadcast()
}

func (r *fakeRadio) TxDone(asn Asn, frame *packet.Packet, acked bool) {
	r.txDone = append(r.txDone, acked)
}

type propagateHandler struct {
	d *Dispatcher
}

func (h propagateHandler) HandleAction(asn Asn, action event.Action) {
	h.d.Propagate(asn)
}

// fixedPdr forces the delivery ratio of every reception.
type fixedPdr float64

func (fixedPdr) Name() string { return "fixed" }
func (f fixedPdr) EffectivePdr(*Reception) float64 { return float64(f) }

type testNet struct {
	eng    *engine.Engine
	log    *simlog.Log
	d      *Dispatcher
	radios []*fakeRadio
}

func newTestNet(m connectivity.Matrix, interf Interference) *testNet {
	eng := engine.New()
	log := simlog.New(eng)
	d := NewDispatcher(eng, m, interf, rand.New(rand.NewSource(1)), log)
	eng.RegisterHandler(event.KindPropagate, propagateHandler{d})
	n := &testNet{eng: eng, log: log, d: d}
	for i := 0; i < m.NumMotes(); i++ {
		r := &fakeRadio{ack: true}
		n.radios = append(n.radios, r)
		d.Attach(i, r)
	}
	return n
}

func (n *testNet) run(t *testing.T) {
	assert.Equal(t, engine.RunFinished, n.eng.Run(context.Background()))
}

func dataFrame(src, dst MoteId) *packet.Packet {
	return packet.New(0, src, dst, &packet.Data{AppCounter: 1, Size: 10})
}

func TestUnicastAcked(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(3, HoppingChannels(16)), NoInterference{})
	frame := dataFrame(1, 0)
	n.d.StartTx(1, 11, frame)
	n.d.StartRx(0, 11)
	n.d.StartRx(2, 11)
	assert.Equal(t, 1, n.eng.PendingEvents())
	n.run(t)

	require.Len(t, n.radios[0].rx, 1)
	assert.Equal(t, 1, n.radios[0].rx[0].Smac)
	assert.NotSame(t, frame, n.radios[0].rx[0])
	assert.Equal(t, 1, n.radios[2].idle)
	assert.Equal(t, []bool{true}, n.radios[1].txDone)
	assert.Equal(t, 1, n.log.Count(simlog.PropTransmission))
	assert.Equal(t, uint64(1), n.d.Counters.Receptions)
}

func TestUnicastNotAcked(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(2, HoppingChannels(16)), NoInterference{})
	n.radios[0].ack = false
	n.d.StartTx(1, 11, dataFrame(1, 0))
	n.d.StartRx(0, 11)
	n.run(t)
	assert.Len(t, n.radios[0].rx, 1)
	assert.Equal(t, []bool{false}, n.radios[1].txDone)
}

func TestOtherChannelIsIdle(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(2, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(1, 11, dataFrame(1, 0))
	n.d.StartRx(0, 12)
	n.run(t)
	assert.Empty(t, n.radios[0].rx)
	assert.Equal(t, 1, n.radios[0].idle)
	assert.Equal(t, []bool{false}, n.radios[1].txDone)
}

func TestOutOfRangeIsIdle(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(3, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(2, 11, dataFrame(2, 0))
	n.d.StartRx(0, 11)
	n.run(t)
	assert.Equal(t, 1, n.radios[0].idle)
	assert.Equal(t, []bool{false}, n.radios[2].txDone)
}

func TestBroadcast(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(3, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(1, 15, dataFrame(1, BroadcastMoteId))
	n.d.StartRx(0, 15)
	n.d.StartRx(2, 15)
	n.run(t)
	assert.Len(t, n.radios[0].rx, 1)
	assert.Len(t, n.radios[2].rx, 1)
	assert.Equal(t, []bool{false}, n.radios[1].txDone)
}

func TestLockOnLowerIdOnTie(t *testing.T) {
	n := newTestNet(connectivity.NewFullyMeshed(3, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(2, 11, dataFrame(2, BroadcastMoteId))
	n.d.StartTx(1, 11, dataFrame(1, BroadcastMoteId))
	n.d.StartRx(0, 11)
	n.run(t)
	require.Len(t, n.radios[0].rx, 1)
	assert.Equal(t, 1, n.radios[0].rx[0].Smac)
	assert.Equal(t, []bool{false}, n.radios[1].txDone)
	assert.Equal(t, []bool{false}, n.radios[2].txDone)
}

func TestTransmitterDoesNotListen(t *testing.T) {
	n := newTestNet(connectivity.NewFullyMeshed(3, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(1, 11, dataFrame(1, BroadcastMoteId))
	n.d.StartTx(2, 11, dataFrame(2, BroadcastMoteId))
	n.d.StartRx(2, 11)
	n.run(t)
	assert.Empty(t, n.radios[2].rx)
	assert.Equal(t, 0, n.radios[2].idle)
}

func TestCollision(t *testing.T) {
	n := newTestNet(connectivity.NewFullyMeshed(3, HoppingChannels(16)), fixedPdr(0))
	n.d.StartTx(1, 11, dataFrame(1, 0))
	n.d.StartTx(2, 11, dataFrame(2, 0))
	n.d.StartRx(0, 11)
	n.run(t)
	assert.Empty(t, n.radios[0].rx)
	assert.Equal(t, 1, n.radios[0].idle)
	assert.Equal(t, 1, n.log.Count(simlog.PropCollision))
	assert.Equal(t, 2, n.log.Count(simlog.PropTransmission))
	assert.Equal(t, uint64(1), n.d.Counters.Collisions)
}

func TestSlotsAreIndependent(t *testing.T) {
	n := newTestNet(connectivity.NewLinear(2, HoppingChannels(16)), NoInterference{})
	n.d.StartTx(1, 11, dataFrame(1, 0))
	n.d.StartRx(0, 11)
	n.run(t)

	n.eng.ScheduleAt(5, event.PriorityStartSlot, event.Action{Kind: event.KindMarker}, "")
	n.run(t)
	n.d.StartRx(0, 11)
	n.run(t)
	assert.Len(t, n.radios[0].rx, 1)
	assert.Equal(t, 1, n.radios[0].idle)
	assert.Len(t, n.radios[1].txDone, 1)
}

func TestInterferenceStrategies(t *testing.T) {
	r := &Reception{
		Listener: 0,
		Channel:  11,
		Signal:   Signal{Sender: 1, Pdr: 0.8, Rssi: -60},
	}
	assert.Equal(t, 0.8, NoInterference{}.EffectivePdr(r))
	assert.Equal(t, 0.8, HalvingInterference{}.EffectivePdr(r))
	assert.Equal(t, 0.8, SinrInterference{NoiseFloor: connectivity.NoiseFloorDbm}.EffectivePdr(r))

	r.Interferers = []Signal{{Sender: 2, Pdr: 1, Rssi: -60}, {Sender: 3, Pdr: 1, Rssi: -100}}
	assert.Equal(t, 0.8, NoInterference{}.EffectivePdr(r))
	assert.InDelta(t, 0.2, HalvingInterference{}.EffectivePdr(r), 1e-9)

	sinr := SinrInterference{NoiseFloor: connectivity.NoiseFloorDbm}
	assert.InDelta(t, 0.0, sinr.Sinr(r), 0.01)
	assert.InDelta(t, connectivity.SinrToPdr(sinr.Sinr(r)), sinr.EffectivePdr(r), 1e-9)
	assert.Less(t, sinr.EffectivePdr(r), 0.3)
}

func TestAddSignalPowers(t *testing.T) {
	assert.InDelta(t, -56.99, addSignalPowersDbm(-60, -60), 0.01)
	assert.Equal(t, -40.0, addSignalPowersDbm(-40, -90))
	assert.Equal(t, -40.0, addSignalPowersDbm(-90, -40))
}

func TestNewInterference(t *testing.T) {
	for _, name := range []string{settings.InterferenceNone, settings.InterferenceHalving, settings.InterferenceSinr} {
		interf, err := NewInterference(name)
		require.NoError(t, err)
		assert.Equal(t, name, interf.Name())
	}
	_, err := NewInterference("bogus")
	assert.True(t, settings.IsConfigError(err))
}
