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
	"math"

	"github.com/atiselsts/6tisch-simulator-sub000/connectivity"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Signal is a transmission as heard by a listener.
type Signal struct {
	Sender MoteId
	Pdr    float64
	Rssi   DbValue
}

// Reception is the transmission a listener locked on, with the other co-channel transmissions it
// hears in the same slot.
type Reception struct {
	Listener    MoteId
	Channel     ChannelId
	Signal      Signal
	Interferers []Signal
}

// Interference computes the delivery ratio of a reception given its interferers.
type Interference interface {
	Name() string
	EffectivePdr(r *Reception) float64
}

// NewInterference returns the interference strategy of the given name.
func NewInterference(name string) (Interference, error) {
	switch name {
	case settings.InterferenceNone:
		return NoInterference{}, nil
	case settings.InterferenceHalving:
		return HalvingInterference{}, nil
	case settings.InterferenceSinr:
		return SinrInterference{NoiseFloor: connectivity.NoiseFloorDbm}, nil
	default:
		return nil, settings.Invalid("conn_interference", "unknown interference model %q", name)
	}
}

// NoInterference ignores concurrent transmissions.
type NoInterference struct{}

func (NoInterference) Name() string {
	return settings.InterferenceNone
}

func (NoInterference) EffectivePdr(r *Reception) float64 {
	return r.Signal.Pdr
}

// HalvingInterference halves the delivery ratio for every interferer heard.
type HalvingInterference struct{}

func (HalvingInterference) Name() string {
	return settings.InterferenceHalving
}

func (HalvingInterference) EffectivePdr(r *Reception) float64 {
	return r.Signal.Pdr * math.Pow(0.5, float64(len(r.Interferers)))
}

// SinrInterference sums the interferer powers over the noise floor and maps the resulting SINR to a
// delivery ratio. The result never exceeds the link's own delivery ratio.
type SinrInterference struct {
	NoiseFloor DbValue
}

func (SinrInterference) Name() string {
	return settings.InterferenceSinr
}

func (si SinrInterference) EffectivePdr(r *Reception) float64 {
	if len(r.Interferers) == 0 {
		return r.Signal.Pdr
	}
	return math.Min(r.Signal.Pdr, connectivity.SinrToPdr(si.Sinr(r)))
}

// Sinr returns the signal to interference-plus-noise ratio of a reception in dB.
func (si SinrInterference) Sinr(r *Reception) DbValue {
	noise := si.NoiseFloor
	for _, intf := range r.Interferers {
		noise = addSignalPowersDbm(noise, intf.Rssi)
	}
	return r.Signal.Rssi - noise
}

// addSignalPowersDbm calculates signal power in dBm of two added, uncorrelated, signals with powers p1 and p2 (dBm).
func addSignalPowersDbm(p1 DbValue, p2 DbValue) DbValue {
	if p1 > p2+15.0 { // avoid costly calculation where possible
		return p1
	}
	if p2 > p1+15.0 {
		return p2
	}
	return 10.0 * math.Log10(math.Pow(10, p1/10.0)+math.Pow(10, p2/10.0))
}
