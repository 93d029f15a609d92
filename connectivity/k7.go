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
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/settings"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// K7Header is the JSON first line of a K7 connectivity trace.
type K7Header struct {
	NodeCount int         `json:"node_count"`
	Channels  []ChannelId `json:"channels"`
	StartDate string      `json:"start_date"`
	StopDate  string      `json:"stop_date"`
	Location  string      `json:"location,omitempty"`
	Interval  float64     `json:"interval,omitempty"`
}

var k7CsvHeader = []string{"datetime", "src", "dst", "channels", "mean_rssi", "pdr", "tx_count", "transaction_id"}

var k7TimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.999999", time.RFC3339Nano}

type k7Row struct {
	offset   float64 // seconds since the trace start
	src, dst MoteId
	channels []ChannelId
	link     Link
}

// K7 is a trace-driven matrix. Refresh applies all trace rows up to the simulated time and swaps
// the resulting table in at once.
type K7 struct {
	*table
	header        K7Header
	start         time.Time
	rows          []k7Row
	cursor        int
	slotDuration  float64
	refreshPeriod Asn
	pending       []Link // next table, built by Refresh
}

// LoadK7 reads the trace file named by cfg and checks it against the run configuration. All
// mismatches are reported together as configuration errors.
func LoadK7(cfg *settings.Settings) (*K7, error) {
	f, err := os.Open(cfg.ConnTrace)
	if err != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "cannot open %s", cfg.ConnTrace), err.Error())
	}
	defer f.Close()

	k7, err := ReadK7(f, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "loading K7 trace %s", cfg.ConnTrace)
	}
	return k7, nil
}

// ReadK7 reads a gzip-compressed trace from r.
func ReadK7(r io.Reader, cfg *settings.Settings) (*K7, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "not a gzip file"), err.Error())
	}
	defer gz.Close()
	br := bufio.NewReader(gz)

	headerLine, err := br.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "missing header line"), err.Error())
	}
	var header K7Header
	if err = json.Unmarshal(headerLine, &header); err != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "malformed header"), err.Error())
	}

	start, errStart := parseK7Time(header.StartDate)
	stop, errStop := parseK7Time(header.StopDate)
	if dateErr := multierror.Append(nil, errStart, errStop).ErrorOrNil(); dateErr != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "bad header dates"), dateErr.Error())
	}
	if err = validateK7(&header, cfg, start, stop); err != nil {
		return nil, err
	}

	rows, err := readK7Rows(br, start)
	if err != nil {
		return nil, err
	}

	k7 := &K7{
		table:         newTable(cfg.NumMotes, HoppingChannels(cfg.NumChans)),
		header:        header,
		start:         start,
		rows:          rows,
		slotDuration:  cfg.SlotDuration,
		refreshPeriod: cfg.SecondsToSlots(cfg.ConnTraceRefreshPeriod),
	}
	k7.pending = k7.snapshot()
	k7.Refresh(0)
	logger.Debugf("K7 trace loaded: %d nodes, %d rows, %s to %s", header.NodeCount, len(rows),
		header.StartDate, header.StopDate)
	return k7, nil
}

func validateK7(header *K7Header, cfg *settings.Settings, start, stop time.Time) error {
	var merr *multierror.Error
	inTrace := make(map[ChannelId]bool, len(header.Channels))
	for _, ch := range header.Channels {
		inTrace[ch] = true
	}
	for _, ch := range HoppingChannels(cfg.NumChans) {
		if !inTrace[ch] {
			merr = multierror.Append(merr, settings.Invalid("phy_numChans",
				"channel %d is not covered by the trace channels %v", ch, header.Channels))
		}
	}
	if header.NodeCount < cfg.NumMotes {
		merr = multierror.Append(merr, settings.Invalid("exec_numMotes",
			"%d motes configured but the trace has %d nodes", cfg.NumMotes, header.NodeCount))
	}
	span := stop.Sub(start).Seconds()
	if cfg.DurationSeconds() > span {
		merr = multierror.Append(merr, settings.Invalid("exec_numSlotframesPerRun",
			"run lasts %.2fs but the trace spans only %.2fs", cfg.DurationSeconds(), span))
	}
	return merr.ErrorOrNil()
}

func readK7Rows(r io.Reader, start time.Time) ([]k7Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(k7CsvHeader)
	cr.TrimLeadingSpace = true

	hdr, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(settings.Invalid("conn_trace", "missing CSV header"), err.Error())
	}
	for i, name := range k7CsvHeader {
		if strings.TrimSpace(hdr[i]) != name {
			return nil, settings.Invalid("conn_trace", "CSV column %d is %q, expected %q", i, hdr[i], name)
		}
	}

	var rows []k7Row
	for lineNo := 3; ; lineNo++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(settings.Invalid("conn_trace", "line %d", lineNo), err.Error())
		}
		row, err := parseK7Row(rec, start)
		if err != nil {
			return nil, errors.Wrap(settings.Invalid("conn_trace", "line %d", lineNo), err.Error())
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].offset < rows[j].offset
	})
	return rows, nil
}

func parseK7Row(rec []string, start time.Time) (k7Row, error) {
	var row k7Row
	ts, err := parseK7Time(rec[0])
	if err != nil {
		return row, err
	}
	row.offset = ts.Sub(start).Seconds()
	if row.src, err = strconv.Atoi(rec[1]); err != nil {
		return row, errors.Wrap(err, "src")
	}
	if row.dst, err = strconv.Atoi(rec[2]); err != nil {
		return row, errors.Wrap(err, "dst")
	}
	if row.channels, err = parseK7Channels(rec[3]); err != nil {
		return row, err
	}
	if row.link.Rssi, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return row, errors.Wrap(err, "mean_rssi")
	}
	if row.link.Pdr, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return row, errors.Wrap(err, "pdr")
	}
	return row, nil
}

// parseK7Channels parses a channel list such as "[11;12;13]".
func parseK7Channels(s string) ([]ChannelId, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, errors.Errorf("channels %q not in [a;b;...] form", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return nil, nil
	}
	var chans []ChannelId
	for _, part := range strings.Split(s, ";") {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "channel %q", part)
		}
		chans = append(chans, ch)
	}
	return chans, nil
}

func parseK7Time(s string) (time.Time, error) {
	for _, layout := range k7TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unparseable date %q", s)
}

// Header returns the trace header.
func (k *K7) Header() K7Header {
	return k.header
}

func (k *K7) RefreshPeriod() Asn {
	return k.refreshPeriod
}

// Refresh applies the trace rows dated up to the simulated time of asn. Rows for motes outside the
// simulation are skipped. A trace row describes a link in both directions.
func (k *K7) Refresh(asn Asn) {
	now := float64(asn) * k.slotDuration
	applied := 0
	for k.cursor < len(k.rows) && k.rows[k.cursor].offset <= now {
		row := &k.rows[k.cursor]
		k.cursor++
		if row.src >= k.numMotes || row.dst >= k.numMotes {
			continue
		}
		for _, ch := range row.channels {
			k.set(k.pending, row.src, row.dst, ch, row.link)
			k.set(k.pending, row.dst, row.src, ch, row.link)
		}
		applied++
	}
	if applied > 0 {
		k.swap(append([]Link(nil), k.pending...))
		logger.Tracef("K7 refresh at asn %d applied %d rows", asn, applied)
	}
}

// WriteK7 writes a gzip-compressed trace, mainly for tests and trace conversion tools.
func WriteK7(w io.Writer, header K7Header, rows [][]string) error {
	gz := gzip.NewWriter(w)
	hdr, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "encoding K7 header")
	}
	if _, err = gz.Write(append(hdr, '\n')); err != nil {
		return errors.Wrap(err, "writing K7 header")
	}
	cw := csv.NewWriter(gz)
	if err = cw.Write(k7CsvHeader); err != nil {
		return errors.Wrap(err, "writing K7 CSV header")
	}
	if err = cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing K7 rows")
	}
	return errors.Wrap(gz.Close(), "closing K7 trace")
}

// FormatK7Channels formats a channel list the way K7 traces store it.
func FormatK7Channels(chans []ChannelId) string {
	parts := make([]string, len(chans))
	for i, ch := range chans {
		parts[i] = strconv.Itoa(ch)
	}
	return "[" + strings.Join(parts, ";") + "]"
}
