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

package simlog

import (
	"fmt"
	"os"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// StatsLog is a Listener writing a CSV log of network-wide state: a row is added whenever the
// counted state changed by the end of an ASN, plus a final row at the end of the simulation.
type StatsLog struct {
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	slotDuration  float64
	curAsn        Asn
	changed       bool
	stats         netStats
	oldStats      netStats

	synced     map[MoteId]struct{}
	joined     map[MoteId]struct{}
	parents    map[MoteId]MoteId
	numDesyncs int
	numDrops   int
	numAppRx   int
}

type netStats struct {
	numMotes      int
	numSynced     int
	numJoined     int
	numWithParent int
	numDesyncs    int
	numDrops      int
	numAppRx      int
}

// NewStatsLog creates the stats CSV file for a network of numMotes motes.
func NewStatsLog(fileName string, numMotes int, slotDuration float64) *StatsLog {
	sl := &StatsLog{
		logFileName:   fileName,
		isFileEnabled: true,
		changed:       true,
		slotDuration:  slotDuration,
		synced:        make(map[MoteId]struct{}, numMotes),
		joined:        make(map[MoteId]struct{}, numMotes),
		parents:       make(map[MoteId]MoteId, numMotes),
	}
	sl.stats.numMotes = numMotes
	sl.oldStats.numMotes = numMotes
	sl.createLogFile()
	return sl
}

func (sl *StatsLog) OnRecord(r *Record) {
	if r.Asn != sl.curAsn {
		sl.advanceTime(r.Asn)
	}

	switch r.Type {
	case TschSync:
		sl.synced[r.Mote] = struct{}{}
	case TschDesync:
		delete(sl.synced, r.Mote)
		delete(sl.joined, r.Mote)
		delete(sl.parents, r.Mote)
		sl.numDesyncs++
	case SecjoinJoined:
		sl.joined[r.Mote] = struct{}{}
	case RplChurn:
		parent := MoteId(r.Int(KeyNewParent))
		if parent < 0 {
			delete(sl.parents, r.Mote)
		} else {
			sl.parents[r.Mote] = parent
		}
	case PacketDropped:
		sl.numDrops++
	case AppReachesRoot:
		sl.numAppRx++
	case SimulatorEnd, SimulatorAbort:
		sl.writeLogEntry(r.Asn, sl.calcStats())
		sl.close()
		logger.Debugf("StatsLog closed CSV log file %s", sl.logFileName)
		return
	default:
		return
	}
	sl.changed = true
}

func (sl *StatsLog) advanceTime(asn Asn) {
	if sl.changed && sl.checkLogEntryChange() {
		sl.writeLogEntry(sl.curAsn, sl.stats)
		sl.oldStats = sl.stats
	}
	sl.changed = false
	sl.curAsn = asn
}

func (sl *StatsLog) createLogFile() {
	var err error
	sl.logFile, err = os.OpenFile(sl.logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", sl.logFileName, err)
		sl.isFileEnabled = false
		return
	}
	sl.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", sl.logFileName)
}

func (sl *StatsLog) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,nMotes,nSynced,nJoined,nWithParent,nDesyncs,nDrops,nAppReachesRoot"
	_ = sl.writeToLogFile(header)
}

func (sl *StatsLog) calcStats() netStats {
	return netStats{
		numMotes:      sl.stats.numMotes,
		numSynced:     len(sl.synced),
		numJoined:     len(sl.joined),
		numWithParent: len(sl.parents),
		numDesyncs:    sl.numDesyncs,
		numDrops:      sl.numDrops,
		numAppRx:      sl.numAppRx,
	}
}

func (sl *StatsLog) checkLogEntryChange() bool {
	sl.stats = sl.calcStats()
	return sl.stats != sl.oldStats
}

func (sl *StatsLog) writeLogEntry(asn Asn, stats netStats) {
	timeSec := float64(asn) * sl.slotDuration
	entry := fmt.Sprintf("%12.6f,%d,%d,%d,%d,%d,%d,%d", timeSec, stats.numMotes, stats.numSynced,
		stats.numJoined, stats.numWithParent, stats.numDesyncs, stats.numDrops, stats.numAppRx)
	_ = sl.writeToLogFile(entry)
}

func (sl *StatsLog) writeToLogFile(line string) error {
	if !sl.isFileEnabled {
		return nil
	}
	_, err := sl.logFile.WriteString(line + "\n")
	if err != nil {
		sl.close()
		logger.Errorf("couldn't write to stats log file (%s), closing it", sl.logFileName)
	}
	return err
}

func (sl *StatsLog) close() {
	if sl.logFile != nil {
		_ = sl.logFile.Close()
		sl.logFile = nil
	}
	sl.isFileEnabled = false
}
