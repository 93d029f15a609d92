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

// Package simlog carries the structured stream of simulation events. Every protocol occurrence is
// emitted once, in ASN order, to the registered listeners and the optional JSON-lines file sink.
package simlog

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Type is a log record type from the fixed vocabulary below.
type Type string

const (
	SimulatorStart Type = "simulator.start"
	SimulatorEnd   Type = "simulator.end"
	SimulatorAbort Type = "simulator.abort"

	AppTx          Type = "app.tx"
	AppRx          Type = "app.rx"
	AppReachesRoot Type = "app.reachesRoot"

	TschTxDone     Type = "tsch.txdone"
	TschRxDone     Type = "tsch.rxdone"
	TschEnqueue    Type = "tsch.enqueue"
	TschSync       Type = "tsch.sync"
	TschDesync     Type = "tsch.desync"
	TschAddCell    Type = "tsch.add_cell"
	TschDeleteCell Type = "tsch.delete_cell"
	TschEbTx       Type = "tsch.eb.tx"

	PacketDropped Type = "packet.dropped"

	RplChurn Type = "rpl.churn"
	RplDioTx Type = "rpl.dio.tx"
	RplDaoTx Type = "rpl.dao.tx"

	SixlowpanFragGen     Type = "sixlowpan.frag.gen"
	SixlowpanReassembled Type = "sixlowpan.reassembled"
	SixlowpanVrbAdd      Type = "sixlowpan.vrb.add"
	SixlowpanVrbRemove   Type = "sixlowpan.vrb.remove"

	SixpTx      Type = "sixp.tx"
	SixpRx      Type = "sixp.rx"
	SixpTimeout Type = "sixp.timeout"

	SecjoinJoined Type = "secjoin.joined"
	SecjoinFailed Type = "secjoin.failed"

	PropTransmission Type = "prop.transmission"
	PropCollision    Type = "prop.collision"
)

const dropTypePrefix = "tsch.drop."

// Common field keys.
const (
	KeyReason      = "reason"
	KeyPacketType  = "packet_type"
	KeySrcIp       = "src_ip"
	KeyDstIp       = "dst_ip"
	KeySmac        = "smac"
	KeyDmac        = "dmac"
	KeyNeighbor    = "neighbor"
	KeyChannel     = "channel"
	KeyAcked       = "acked"
	KeyAppCounter  = "app_counter"
	KeyLength      = "length"
	KeyHopCount    = "hop_count"
	KeyCreatedAsn  = "created_asn"
	KeyOldParent   = "old_parent"
	KeyNewParent   = "new_parent"
	KeyRank        = "rank"
	KeyTag         = "tag"
	KeyOffset      = "offset"
	KeySize        = "size"
	KeySlotOffset  = "slot_offset"
	KeyChOffset    = "channel_offset"
	KeyCellOptions = "cell_options"
	KeyHandle      = "slotframe_handle"
	KeyCommand     = "command"
	KeyReturnCode  = "return_code"
	KeySeqNum      = "seqnum"
	KeyNumCells    = "num_cells"
	KeyPdr         = "pdr"
	KeyRssi        = "rssi"
	KeyReceivers   = "receivers"
	KeySummary     = "summary"
	KeySeed        = "seed"
)

// Record is one simulation event. Fields are zap fields, so they keep their type both for the
// listeners and the JSON sink.
type Record struct {
	Asn    Asn
	Type   Type
	Mote   MoteId
	Fields []zap.Field
}

// IsDrop tells whether the record reports a dropped frame.
func (r *Record) IsDrop() bool {
	return r.Type == PacketDropped
}

// DropType names the drop in the tsch.drop.<reason> family, or returns "" for other records.
func (r *Record) DropType() Type {
	if !r.IsDrop() {
		return ""
	}
	return Type(dropTypePrefix + r.Str(KeyReason))
}

// Field returns the field with the given key.
func (r *Record) Field(key string) (zap.Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return zap.Field{}, false
}

// Int returns an integer or boolean field, or 0.
func (r *Record) Int(key string) int64 {
	f, ok := r.Field(key)
	if !ok {
		return 0
	}
	return f.Integer
}

// Bool returns a boolean field, or false.
func (r *Record) Bool(key string) bool {
	f, ok := r.Field(key)
	return ok && f.Type == zapcore.BoolType && f.Integer == 1
}

// Float returns a float64 field, or 0.
func (r *Record) Float(key string) float64 {
	f, ok := r.Field(key)
	if !ok || f.Type != zapcore.Float64Type {
		return 0
	}
	return math.Float64frombits(uint64(f.Integer))
}

// Str returns a string field, or "".
func (r *Record) Str(key string) string {
	f, ok := r.Field(key)
	if !ok {
		return ""
	}
	return f.String
}

func (r *Record) String() string {
	return fmt.Sprintf("Record{asn=%d, type=%s, mote=%d, fields=%d}", r.Asn, r.Type, r.Mote, len(r.Fields))
}

// Listener observes the simulation event stream.
type Listener interface {
	OnRecord(r *Record)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(r *Record)

func (f ListenerFunc) OnRecord(r *Record) {
	f(r)
}

// Log dispatches records. It is used from the simulation goroutine only.
type Log struct {
	clock     logger.AsnSource
	listeners []Listener
	sinks     []*FileSink
	counts    map[Type]int
	closed    bool
}

// New creates a Log stamping records with the ASN of clock.
func New(clock logger.AsnSource) *Log {
	return &Log{
		clock:  clock,
		counts: make(map[Type]int),
	}
}

// AddListener subscribes l to all records emitted from now on.
func (l *Log) AddListener(listener Listener) {
	logger.AssertNotNil(listener)
	l.listeners = append(l.listeners, listener)
}

// AddSink writes all records from now on to the sink. The Log closes the sink on Close.
func (l *Log) AddSink(sink *FileSink) {
	logger.AssertNotNil(sink)
	l.sinks = append(l.sinks, sink)
}

// Emit creates a record at the current ASN and dispatches it.
func (l *Log) Emit(typ Type, mote MoteId, fields ...zap.Field) {
	l.Dispatch(&Record{
		Asn:    l.clock.CurrentAsn(),
		Type:   typ,
		Mote:   mote,
		Fields: fields,
	})
}

// Dispatch delivers a record to all sinks and listeners. Records after Close are discarded.
func (l *Log) Dispatch(r *Record) {
	if l.closed {
		logger.Debugf("simlog closed, discarding %s", r)
		return
	}
	l.counts[r.Type]++
	if r.IsDrop() {
		l.counts[r.DropType()]++
	}
	for _, s := range l.sinks {
		s.Write(r)
	}
	for _, lis := range l.listeners {
		lis.OnRecord(r)
	}
}

// Count returns how many records of a type were emitted. Drop family types (tsch.drop.<reason>)
// are counted too.
func (l *Log) Count(typ Type) int {
	return l.counts[typ]
}

// Close emits the final marker record (simulator.end or simulator.abort) and closes all sinks.
// Later calls do nothing.
func (l *Log) Close(final Type, fields ...zap.Field) error {
	if l.closed {
		return nil
	}
	logger.AssertTrue(final == SimulatorEnd || final == SimulatorAbort, "invalid final record type %s", final)
	l.Emit(final, InvalidMoteId, fields...)
	l.closed = true

	var err error
	for _, s := range l.sinks {
		if e := s.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// IsClosed tells whether the final marker was emitted.
func (l *Log) IsClosed() bool {
	return l.closed
}
