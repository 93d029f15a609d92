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

package logger

import (
	"fmt"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// AsnSource reports the current simulation ASN for log prefixes.
type AsnSource interface {
	CurrentAsn() Asn
}

// MoteLogger is a mote-specific log object. Its display level can be set per individual mote,
// independent of the global level.
type MoteLogger struct {
	Id           MoteId
	displayLevel Level
	clock        AsnSource
}

// NewMoteLogger creates the logger for the mote with the given id. A nil clock omits the ASN prefix.
func NewMoteLogger(id MoteId, clock AsnSource) *MoteLogger {
	return &MoteLogger{
		Id:           id,
		displayLevel: GetLevel(),
		clock:        clock,
	}
}

func (ml *MoteLogger) SetDisplayLevel(level Level) {
	ml.displayLevel = level
}

func (ml *MoteLogger) DisplayLevel() Level {
	return ml.displayLevel
}

func (ml *MoteLogger) prefix() string {
	if ml.clock == nil {
		return GetMoteName(ml.Id) + " "
	}
	return fmt.Sprintf("%11d %s ", ml.clock.CurrentAsn(), GetMoteName(ml.Id))
}

func (ml *MoteLogger) Logf(level Level, format string, args []interface{}) {
	if level > PanicLevel && level > ml.displayLevel {
		return
	}
	logAlways(level, ml.prefix()+getMessage(format, args))
}

func (ml *MoteLogger) Tracef(format string, args ...interface{}) {
	ml.Logf(TraceLevel, format, args)
}

func (ml *MoteLogger) Debugf(format string, args ...interface{}) {
	ml.Logf(DebugLevel, format, args)
}

func (ml *MoteLogger) Infof(format string, args ...interface{}) {
	ml.Logf(InfoLevel, format, args)
}

func (ml *MoteLogger) Warnf(format string, args ...interface{}) {
	ml.Logf(WarnLevel, format, args)
}

func (ml *MoteLogger) Errorf(format string, args ...interface{}) {
	ml.Logf(ErrorLevel, format, args)
}

func (ml *MoteLogger) Error(err error) {
	if err == nil {
		return
	}
	ml.Logf(ErrorLevel, "%v", []interface{}{err})
}

func (ml *MoteLogger) Panicf(format string, args ...interface{}) {
	ml.Logf(PanicLevel, format, args)
}
