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

package simulation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/progctx"
	"github.com/atiselsts/6tisch-simulator-sub000/rpl"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	"github.com/atiselsts/6tisch-simulator-sub000/simlog"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

func forcedSettings(numMotes int) *settings.Settings {
	s := settings.Default()
	s.NumMotes = numMotes
	s.RandomSeed = 5
	s.ConnClass = settings.ConnLinear
	s.ForceInitialState = true
	s.AppPkPeriod = 0
	return s
}

func newTestContext(t *testing.T, s *settings.Settings, opts ...Option) (*Context, *[]*simlog.Record) {
	c, err := New(s, opts...)
	require.NoError(t, err)
	var records []*simlog.Record
	c.Log().AddListener(simlog.ListenerFunc(func(r *simlog.Record) {
		records = append(records, r)
	}))
	return c, &records
}

func TestPeriodicApp(t *testing.T) {
	s := forcedSettings(2)
	s.AppPkPeriod = 2
	s.NumSlotframesPerRun = 11
	c, _ := newTestContext(t, s)

	status, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.RunTerminated, status)
	assert.Equal(t, s.HorizonSlots(), c.Engine().CurrentAsn())
	assert.Equal(t, 5, c.Log().Count(simlog.AppTx))
	assert.Equal(t, 5, c.Mote(1).Counters.AppGenerated)
	assert.Equal(t, 5.0, testutil.ToFloat64(c.Metrics().AppPackets.WithLabelValues("1", "generated")))
	assert.True(t, c.IsFinished())
	assert.Equal(t, 1, c.Log().Count(simlog.SimulatorEnd))
}

func TestFragmentForwarding(t *testing.T) {
	s := forcedSettings(3)
	s.Fragmentation = settings.FragFragmentForwarding
	s.FragNumFragments = 2
	s.NumSlotframesPerRun = 10
	c, records := newTestContext(t, s)

	c.Mote(2).SendSinglePacket()
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	var offsets []int64
	for _, r := range *records {
		if r.Type == simlog.TschEnqueue && r.Mote == 1 && r.Str(simlog.KeyPacketType) == "FRAG" {
			assert.EqualValues(t, 2, r.Int(simlog.KeySrcIp))
			offsets = append(offsets, r.Int(simlog.KeyOffset))
		}
	}
	assert.Equal(t, []int64{0, int64(s.MaxPayloadLen)}, offsets)
	assert.Equal(t, 1, c.Mote(RootMoteId).Counters.AppReachesRoot)
	assert.Equal(t, 1, c.Log().Count(simlog.AppReachesRoot))
	assert.Equal(t, 1, c.Log().Count(simlog.SixlowpanReassembled))
}

func TestForcedLinearRanks(t *testing.T) {
	c, _ := newTestContext(t, forcedSettings(5))

	for i, m := range c.Motes() {
		assert.EqualValues(t, int(rpl.RootRank)+i*rpl.MinHopRankIncrease, m.Dodag().Rank(), "mote %d", i)
		assert.Equal(t, i+1, m.Dodag().DagRank())
		assert.True(t, m.IsSync())
		assert.True(t, m.IsJoined())
		if i == 0 {
			continue
		}
		assert.Equal(t, i-1, m.Dodag().Parent())
		assert.True(t, m.Schedule().HasDedicatedTxCell(i-1))
		assert.True(t, c.Mote(i-1).Dodag().IsChild(i))
	}
	assert.Equal(t, []MoteId{1, 2, 3, 4}, c.Mote(RootMoteId).SourceRoutes().ComputeSourceRoute(4))
}

func TestForcedStateSyncsRootFirst(t *testing.T) {
	c, _ := newTestContext(t, forcedSettings(3))
	root := c.Mote(RootMoteId)
	assert.True(t, root.IsSync())
	rx := root.Schedule().CellsTo(1)
	require.Len(t, rx, 1)
	assert.True(t, rx[0].IsRx())
	assert.Equal(t, c.Mote(1).Schedule().CellsTo(RootMoteId)[0].SlotOffset, rx[0].SlotOffset)
}

func TestForcedParentsAreNotChurn(t *testing.T) {
	s := forcedSettings(4)
	s.NumSlotframesPerRun = 2
	c, _ := newTestContext(t, s)
	assert.Zero(t, c.Log().Count(simlog.RplChurn))

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	kpi := c.Kpi().Calculate()
	for id := 1; id < s.NumMotes; id++ {
		require.Contains(t, kpi.Motes, id)
		assert.Zero(t, kpi.Motes[id].ParentChange, "mote %d", id)
	}
}

func TestFullyMeshedForcedTree(t *testing.T) {
	s := forcedSettings(4)
	s.ConnClass = settings.ConnFullyMeshed
	c, _ := newTestContext(t, s)
	for _, m := range c.Motes()[1:] {
		assert.Equal(t, RootMoteId, m.Dodag().Parent())
	}
}

func TestConfigErrors(t *testing.T) {
	s := settings.Default()
	s.NumMotes = 0
	_, err := New(s)
	require.Error(t, err)
	assert.True(t, settings.IsConfigError(err))

	s = settings.Default()
	s.ConnClass = settings.ConnK7
	s.ConnTrace = filepath.Join(t.TempDir(), "missing.k7.gz")
	_, err = New(s)
	require.Error(t, err)
	assert.True(t, settings.IsConfigError(err))
	assert.Contains(t, err.Error(), "conn_trace")
}

func TestRunUntil(t *testing.T) {
	s := forcedSettings(2)
	c, _ := newTestContext(t, s)

	status, err := c.RunUntil(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, engine.RunPaused, status)
	assert.Equal(t, Asn(500), c.Engine().CurrentAsn())
	assert.False(t, c.IsFinished())

	status, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.RunTerminated, status)
	assert.True(t, c.IsFinished())
}

func TestCancelledRunAborts(t *testing.T) {
	c, _ := newTestContext(t, forcedSettings(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.RunCancelled, status)
	assert.Equal(t, 1, c.Log().Count(simlog.SimulatorAbort))
	assert.Zero(t, c.Log().Count(simlog.SimulatorEnd))
	assert.True(t, c.IsFinished())
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	s := forcedSettings(2)
	s.AppPkPeriod = 2
	s.NumSlotframesPerRun = 11
	s.KpiFile = filepath.Join(dir, "kpi.json")
	s.LogFile = filepath.Join(dir, "events.jsonl")
	statsFile := filepath.Join(dir, "stats.csv")
	c, _ := newTestContext(t, s, WithStatsFile(statsFile), WithEnergyDir(dir))

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(s.KpiFile)
	require.NoError(t, err)
	var kpi Kpi
	require.NoError(t, json.Unmarshal(data, &kpi))
	assert.Equal(t, "ok", kpi.Status)
	assert.Equal(t, 5, kpi.Network.App.Generated)
	assert.Equal(t, 5, kpi.Motes[1].App.Generated)
	assert.LessOrEqual(t, kpi.Network.App.ReachedRoot, 5)
	assert.Greater(t, kpi.Network.App.ReachedRoot, 0)
	assert.Equal(t, 2, kpi.Network.Joined)
	assert.Greater(t, kpi.Network.ChargeUc, 0.0)
	assert.Equal(t, s.HorizonSlots(), kpi.TimeAsn.EndAsn)

	events, err := os.ReadFile(s.LogFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(events)), "\n")
	assert.Contains(t, lines[0], string(simlog.SimulatorStart))
	assert.Contains(t, lines[len(lines)-1], string(simlog.SimulatorEnd))

	for _, fn := range []string{statsFile, filepath.Join(dir, "energy.txt"), filepath.Join(dir, "energy_motes.txt")} {
		_, err = os.Stat(fn)
		assert.NoError(t, err, fn)
	}
}

func TestController(t *testing.T) {
	s := forcedSettings(2)
	c, _ := newTestContext(t, s)
	pctx := progctx.New(context.Background())
	defer func() {
		pctx.Cancel(nil)
		pctx.Wait()
	}()
	c.StartAsync(pctx)

	ctrl := NewSimulationController(c)
	require.NoError(t, ctrl.CtrlSendPacket(1))
	assert.Error(t, ctrl.CtrlSendPacket(7))

	done, err := ctrl.CtrlResume(Ever)
	require.NoError(t, err)
	assert.Equal(t, engine.RunTerminated, <-done)
	assert.True(t, c.IsFinished())
	assert.Equal(t, 1, c.Log().Count(simlog.AppTx))
	assert.Equal(t, 1, c.Log().Count(simlog.SimulatorEnd))
}

func TestReadOnlyController(t *testing.T) {
	c, _ := newTestContext(t, forcedSettings(2), WithReadOnly())
	ctrl := NewSimulationController(c)

	_, err := ctrl.CtrlResume(Ever)
	assert.Error(t, err)
	assert.Error(t, ctrl.CtrlPause())
	assert.Error(t, ctrl.CtrlTerminate())
	assert.EqualError(t, ctrl.CtrlSendPacket(1), "simulation is readonly")
}
