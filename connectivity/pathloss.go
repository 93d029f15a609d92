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

package connectivity

import (
	"math"

	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const (
	defaultTxPowerDbm    DbValue = 0.0
	defaultNoiseFloorDbm DbValue = -95.0 // indoor ambient noise floor
)

// PathlossParams stores the parameters of a log-distance path loss model.
type PathlossParams struct {
	ExponentDb      DbValue // the exponent (dB) in the regular/LOS model
	FixedLossDb     DbValue // the fixed loss (dB) term in the regular/LOS model
	NlosExponentDb  DbValue // the exponent (dB) in the NLOS model, 0 if unused
	NlosFixedLossDb DbValue // the fixed loss (dB) term in the NLOS model
}

// paround is a custom parameter rounding function (2 digits)
func paround(param float64) float64 {
	return math.Round(param*100.0) / 100.0
}

// ITU-T indoor model at 2.4 GHz.
func indoorParamsItu() PathlossParams {
	return PathlossParams{
		ExponentDb:  30.0,
		FixedLossDb: paround(20.0*math.Log10(2400) - 28.0),
	}
}

// see 3GPP TR 38.901 V17.0.0, Table 7.4.1-1: Pathloss models.
func indoorParams3gpp() PathlossParams {
	return PathlossParams{
		ExponentDb:      17.3,
		FixedLossDb:     paround(32.4 + 20*math.Log10(2.4)),
		NlosExponentDb:  38.3,
		NlosFixedLossDb: paround(17.3 + 24.9*math.Log10(2.4)),
	}
}

// NewPathlossParams returns the parameters of the named model.
func NewPathlossParams(model string) PathlossParams {
	if model == settings.Pathloss3gpp {
		return indoorParams3gpp()
	}
	return indoorParamsItu()
}

// ComputeRssi computes the RSSI for a receiver at distance distMeters of a transmitter.
// See https://en.wikipedia.org/wiki/ITU_model_for_indoor_attenuation
func ComputeRssi(distMeters float64, txPower DbValue, params PathlossParams) DbValue {
	pathloss := 0.0
	if distMeters >= 0.01 {
		pathloss = params.ExponentDb*math.Log10(distMeters) + params.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
		if params.NlosExponentDb > 0.0 {
			pathlossNLOS := params.NlosExponentDb*math.Log10(distMeters) + params.NlosFixedLossDb
			pathloss = math.Max(pathloss, pathlossNLOS)
		}
	}
	rssi := txPower - pathloss
	if rssi < RssiMin {
		rssi = RssiMinusInfinity
	}
	return rssi
}
