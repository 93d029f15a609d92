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

package settings

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrConfig is the cause of every configuration error.
var ErrConfig = errors.New("configuration error")

// FieldError pinpoints an invalid settings field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrConfig
}

// Invalid returns a FieldError for field.
func Invalid(field string, format string, args ...interface{}) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError tells whether err stems from invalid configuration.
func IsConfigError(err error) bool {
	return err != nil && errors.Is(err, ErrConfig)
}

// Validate checks all fields and contradictory combinations, and returns every problem found as
// a multierror of *FieldError, or nil.
func (s *Settings) Validate() error {
	var result *multierror.Error
	add := func(field, format string, args ...interface{}) {
		result = multierror.Append(result, Invalid(field, format, args...))
	}

	if s.NumMotes < 1 {
		add("exec_numMotes", "must be at least 1, got %d", s.NumMotes)
	}
	if s.NumSlotframesPerRun < 1 {
		add("exec_numSlotframesPerRun", "must be at least 1, got %d", s.NumSlotframesPerRun)
	}
	if s.SlotDuration <= 0 {
		add("tsch_slotDuration", "must be positive, got %v", s.SlotDuration)
	}
	if s.SlotframeLength < 2 {
		add("tsch_slotframeLength", "must be at least 2, got %d", s.SlotframeLength)
	}
	if s.TxQueueSize < 1 {
		add("tsch_tx_queue_size", "must be at least 1, got %d", s.TxQueueSize)
	}
	if s.MaxTxRetries < 0 {
		add("tsch_max_tx_retries", "must not be negative, got %d", s.MaxTxRetries)
	}
	if s.MaxPayloadLen < 1 {
		add("tsch_max_payload_len", "must be positive, got %d", s.MaxPayloadLen)
	}
	if s.BackoffMinExp < 0 || s.BackoffMaxExp < s.BackoffMinExp || s.BackoffMaxExp > 15 {
		add("tsch_backoff_max_exp", "backoff exponents must satisfy 0 <= min (%d) <= max (%d) <= 15",
			s.BackoffMinExp, s.BackoffMaxExp)
	}
	if s.ClockMaxDriftPpm < 0 {
		add("tsch_clock_max_drift_ppm", "must not be negative, got %v", s.ClockMaxDriftPpm)
	}
	if s.NumChans < 1 || s.NumChans > 16 {
		add("phy_numChans", "must be within [1, 16], got %d", s.NumChans)
	}

	switch s.ConnClass {
	case ConnLinear, ConnFullyMeshed:
	case ConnRandom:
		if s.ConnRandomSquareSide <= 0 {
			add("conn_random_square_side", "must be positive, got %v", s.ConnRandomSquareSide)
		}
		if s.ConnRandomPathlossModel != PathlossItu && s.ConnRandomPathlossModel != Pathloss3gpp {
			add("conn_random_pathloss_model", "unknown path loss model %q", s.ConnRandomPathlossModel)
		}
		for _, p := range s.Topology {
			if p.Id < 0 || p.Id >= s.NumMotes {
				add("topology", "position for unknown mote %d", p.Id)
			}
		}
	case ConnK7:
		if s.ConnTrace == "" {
			add("conn_trace", "required when conn_class is %s", ConnK7)
		}
		if s.ConnTraceRefreshPeriod <= 0 {
			add("conn_trace_refresh_period", "must be positive, got %v", s.ConnTraceRefreshPeriod)
		}
	default:
		add("conn_class", "unknown connectivity class %q", s.ConnClass)
	}

	switch s.ConnInterference {
	case InterferenceNone, InterferenceHalving, InterferenceSinr:
	default:
		add("conn_interference", "unknown interference model %q", s.ConnInterference)
	}

	if s.AppPkPeriod < 0 {
		add("app_pkPeriod", "must not be negative, got %v", s.AppPkPeriod)
	}
	if s.AppPkPeriodVar < 0 || s.AppPkPeriodVar >= 1 {
		add("app_pkPeriodVar", "must be within [0, 1), got %v", s.AppPkPeriodVar)
	}
	if s.AppPkLength < 1 {
		add("app_pkLength", "must be positive, got %d", s.AppPkLength)
	}
	if s.AppBurstNumPackets < 0 {
		add("app_burstNumPackets", "must not be negative, got %d", s.AppBurstNumPackets)
	}

	switch s.Fragmentation {
	case FragPerHopReassembly, FragFragmentForwarding:
	default:
		add("fragmentation", "unknown fragmentation mode %q", s.Fragmentation)
	}
	if s.FragNumFragments < 0 {
		add("frag_numFragments", "must not be negative, got %d", s.FragNumFragments)
	}
	if s.FragPhNumReassBuffs < 1 {
		add("frag_ph_numReassBuffs", "must be at least 1, got %d", s.FragPhNumReassBuffs)
	}
	if s.FragFfVrbTableSize < 1 {
		add("frag_ff_vrbtablesize", "must be at least 1, got %d", s.FragFfVrbTableSize)
	}
	for _, p := range s.FragFfDiscardVrbEntryPolicy {
		if p != VrbPolicyLastFragment && p != VrbPolicyMissingFragment {
			add("frag_ff_discard_vrb_entry_policy", "unknown trigger %q", p)
		}
	}
	if s.FragLifetime <= 0 {
		add("frag_lifetime", "must be positive, got %v", s.FragLifetime)
	}
	if s.FragMaxDatagramSize < s.MaxPayloadLen {
		add("frag_max_datagram_size", "must be at least tsch_max_payload_len (%d), got %d",
			s.MaxPayloadLen, s.FragMaxDatagramSize)
	}
	if s.datagramLength() > s.FragMaxDatagramSize {
		add("app_pkLength", "application datagrams of %d bytes exceed frag_max_datagram_size %d",
			s.datagramLength(), s.FragMaxDatagramSize)
	}

	switch s.RplOf {
	case OfZero, OfMinHop:
	default:
		add("rpl_of", "unknown objective function %q", s.RplOf)
	}
	if s.RplParentSwitchThreshold < 0 {
		add("rpl_parentSwitchThreshold", "must not be negative, got %d", s.RplParentSwitchThreshold)
	}

	switch s.SfClass {
	case SfMsf, SfNone:
	default:
		add("sf_class", "unknown scheduling function %q", s.SfClass)
	}
	if s.SfClass == SfMsf && s.MsfNumCells < 1 {
		add("msf_numCells", "must be at least 1, got %d", s.MsfNumCells)
	}

	for _, p := range []struct {
		field string
		value float64
	}{
		{"tsch_eb_period", s.EbPeriod},
		{"tsch_keep_alive_interval", s.KeepAliveInterval},
		{"rpl_dioPeriod", s.RplDioPeriod},
		{"rpl_daoPeriod", s.RplDaoPeriod},
		{"secjoin_timeout", s.SecjoinTimeout},
		{"sixp_timeout", s.SixpTimeout},
	} {
		if p.value <= 0 {
			add(p.field, "must be positive, got %v", p.value)
		}
	}

	return result.ErrorOrNil()
}

// AppDatagramLength is the payload length of the datagrams generated by the application.
func (s *Settings) AppDatagramLength() int {
	return s.datagramLength()
}

func (s *Settings) datagramLength() int {
	if s.FragNumFragments > 0 {
		return s.FragNumFragments * s.MaxPayloadLen
	}
	return s.AppPkLength
}
