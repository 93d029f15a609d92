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

// Package settings holds the configuration of a simulation run, its defaults, YAML loading and
// startup validation.
package settings

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ConnLinear      = "Linear"
	ConnFullyMeshed = "FullyMeshed"
	ConnRandom      = "Random"
	ConnK7          = "K7"

	InterferenceNone    = "none"
	InterferenceHalving = "halving"
	InterferenceSinr    = "sinr"

	PathlossItu  = "itu"
	Pathloss3gpp = "3gpp"

	FragPerHopReassembly   = "PerHopReassembly"
	FragFragmentForwarding = "FragmentForwarding"

	VrbPolicyLastFragment    = "last_fragment"
	VrbPolicyMissingFragment = "missing_fragment"

	OfZero   = "OF0"
	OfMinHop = "MinHop"

	SfMsf  = "MSF"
	SfNone = "SFNone"
)

// MotePosition places a mote at (x, y) meters, used by the Random connectivity class.
type MotePosition struct {
	Id  int        `yaml:"id"`
	Pos [2]float64 `yaml:"pos,flow"`
}

// Settings is the configuration of one simulation run. Field names follow the 6TiSCH simulator
// configuration keys.
type Settings struct {
	// exec
	NumMotes            int   `yaml:"exec_numMotes"`
	NumSlotframesPerRun int   `yaml:"exec_numSlotframesPerRun"`
	RandomSeed          int64 `yaml:"exec_randomSeed"`

	// logging and output
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	KpiFile  string `yaml:"kpi_file"`

	// tsch
	SlotDuration      float64 `yaml:"tsch_slotDuration"`
	SlotframeLength   int     `yaml:"tsch_slotframeLength"`
	TxQueueSize       int     `yaml:"tsch_tx_queue_size"`
	MaxTxRetries      int     `yaml:"tsch_max_tx_retries"`
	MaxPayloadLen     int     `yaml:"tsch_max_payload_len"`
	BackoffMinExp     int     `yaml:"tsch_backoff_min_exp"`
	BackoffMaxExp     int     `yaml:"tsch_backoff_max_exp"`
	EbPeriod          float64 `yaml:"tsch_eb_period"`
	KeepAliveInterval float64 `yaml:"tsch_keep_alive_interval"`
	ClockMaxDriftPpm  float64 `yaml:"tsch_clock_max_drift_ppm"`
	GuardTimeUs       float64 `yaml:"tsch_guard_time_us"`

	// phy
	NumChans int `yaml:"phy_numChans"`

	// connectivity
	ConnClass                  string         `yaml:"conn_class"`
	ConnTrace                  string         `yaml:"conn_trace"`
	ConnTraceRefreshPeriod     float64        `yaml:"conn_trace_refresh_period"`
	ConnRandomSquareSide       float64        `yaml:"conn_random_square_side"`
	ConnRandomInitMinNeighbors int            `yaml:"conn_random_init_min_neighbors"`
	ConnInterference           string         `yaml:"conn_interference"`
	ConnRandomPathlossModel    string         `yaml:"conn_random_pathloss_model"`
	Topology                   []MotePosition `yaml:"topology"`

	// app
	AppPkPeriod        float64 `yaml:"app_pkPeriod"`
	AppPkPeriodVar     float64 `yaml:"app_pkPeriodVar"`
	AppPkLength        int     `yaml:"app_pkLength"`
	AppBurstTimestamp  float64 `yaml:"app_burstTimestamp"`
	AppBurstNumPackets int     `yaml:"app_burstNumPackets"`
	AppEcho            bool    `yaml:"app_echo"`

	// fragmentation
	Fragmentation               string   `yaml:"fragmentation"`
	FragNumFragments            int      `yaml:"frag_numFragments"`
	FragPhNumReassBuffs         int      `yaml:"frag_ph_numReassBuffs"`
	FragFfVrbTableSize          int      `yaml:"frag_ff_vrbtablesize"`
	FragFfDiscardVrbEntryPolicy []string `yaml:"frag_ff_discard_vrb_entry_policy"`
	FragLifetime                float64  `yaml:"frag_lifetime"`
	FragMaxDatagramSize         int      `yaml:"frag_max_datagram_size"`

	// rpl
	RplOf                    string  `yaml:"rpl_of"`
	RplDioPeriod             float64 `yaml:"rpl_dioPeriod"`
	RplDaoPeriod             float64 `yaml:"rpl_daoPeriod"`
	RplParentSwitchThreshold int     `yaml:"rpl_parentSwitchThreshold"`

	// secure join
	SecjoinEnabled bool    `yaml:"secjoin_enabled"`
	SecjoinTimeout float64 `yaml:"secjoin_timeout"`

	// scheduling function
	SfClass     string  `yaml:"sf_class"`
	MsfNumCells int     `yaml:"msf_numCells"`
	SixpTimeout float64 `yaml:"sixp_timeout"`

	ForceInitialState bool `yaml:"force_initial_routing_and_scheduling_state"`
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{
		NumMotes:            3,
		NumSlotframesPerRun: 100,
		RandomSeed:          0,

		LogLevel: "info",

		SlotDuration:      0.010,
		SlotframeLength:   101,
		TxQueueSize:       10,
		MaxTxRetries:      5,
		MaxPayloadLen:     90,
		BackoffMinExp:     1,
		BackoffMaxExp:     7,
		EbPeriod:          10,
		KeepAliveInterval: 10,
		ClockMaxDriftPpm:  30,
		GuardTimeUs:       2200,

		NumChans: 16,

		ConnClass:                  ConnLinear,
		ConnTraceRefreshPeriod:     60,
		ConnRandomSquareSide:       0.2,
		ConnRandomInitMinNeighbors: 3,
		ConnInterference:           InterferenceHalving,
		ConnRandomPathlossModel:    PathlossItu,

		AppPkPeriod:    60,
		AppPkPeriodVar: 0.05,
		AppPkLength:    90,

		Fragmentation:       FragPerHopReassembly,
		FragPhNumReassBuffs: 1,
		FragFfVrbTableSize:  50,
		FragLifetime:        60,
		FragMaxDatagramSize: 1280,

		RplOf:                    OfZero,
		RplDioPeriod:             10,
		RplDaoPeriod:             60,
		RplParentSwitchThreshold: 640,

		SecjoinTimeout: 60,

		SfClass:     SfMsf,
		MsfNumCells: 1,
		SixpTimeout: 10,
	}
}

// Load reads YAML settings from a file on top of the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading settings file %s", path)
	}
	return Parse(data)
}

// Parse reads YAML settings on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && err != io.EOF {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	return s, nil
}

// Marshal serializes the settings to YAML.
func (s *Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	c.FragFfDiscardVrbEntryPolicy = append([]string(nil), s.FragFfDiscardVrbEntryPolicy...)
	c.Topology = append([]MotePosition(nil), s.Topology...)
	return &c
}

// SecondsToSlots converts a duration in seconds to a number of slots, rounded to the nearest slot.
func (s *Settings) SecondsToSlots(sec float64) uint64 {
	if sec <= 0 {
		return 0
	}
	return uint64(math.Round(sec / s.SlotDuration))
}

// HorizonSlots is the number of slots the run lasts.
func (s *Settings) HorizonSlots() uint64 {
	return uint64(s.NumSlotframesPerRun) * uint64(s.SlotframeLength)
}

// DurationSeconds is the simulated duration of the run.
func (s *Settings) DurationSeconds() float64 {
	return float64(s.HorizonSlots()) * s.SlotDuration
}

// HasVrbPolicy tells whether the VRB entry discard policy contains the given trigger.
func (s *Settings) HasVrbPolicy(policy string) bool {
	for _, p := range s.FragFfDiscardVrbEntryPolicy {
		if p == policy {
			return true
		}
	}
	return false
}

func (s *Settings) String() string {
	return fmt.Sprintf("Settings{motes=%d, slotframes=%d, conn=%s, frag=%s, seed=%d}",
		s.NumMotes, s.NumSlotframesPerRun, s.ConnClass, s.Fragmentation, s.RandomSeed)
}
