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

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// NoiseFloorDbm is the ambient noise level assumed by the SINR computations.
const NoiseFloorDbm = defaultNoiseFloorDbm

// measured RSSI to PDR of 802.15.4 links, per dBm from rssiPdrMin upward
var rssiPdrTable = []float64{
	0.0000, // -97
	0.1494, // -96
	0.2340,
	0.4071,
	0.6359,
	0.6866,
	0.7476, // -91
	0.8603,
	0.8702,
	0.9324,
	0.9427,
	0.9562, // -86
	0.9611,
	0.9739,
	0.9745,
	0.9844,
	0.9854, // -81
	0.9903,
	1.0000, // -79
}

const rssiPdrMin DbValue = -97.0

// RssiToPdr maps an RSSI to the delivery ratio of a link, interpolating linearly between the
// measured points.
func RssiToPdr(rssi DbValue) float64 {
	rssiPdrMax := rssiPdrMin + DbValue(len(rssiPdrTable)-1)
	if rssi <= rssiPdrMin {
		return 0.0
	}
	if rssi >= rssiPdrMax {
		return 1.0
	}
	lo := math.Floor(rssi)
	idx := int(lo - rssiPdrMin)
	frac := rssi - lo
	return rssiPdrTable[idx] + frac*(rssiPdrTable[idx+1]-rssiPdrTable[idx])
}

// SinrToPdr maps a signal to interference-plus-noise ratio to a delivery ratio, by looking up the
// RSSI that would give the same SNR over the noise floor.
func SinrToPdr(sinrDb DbValue) float64 {
	return RssiToPdr(NoiseFloorDbm + sinrDb)
}
