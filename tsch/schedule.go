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

package tsch

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// ErrCellConflict is returned when adding a cell to an occupied slot offset.
var ErrCellConflict = errors.New("cell conflict")

// Slotframe holds at most one cell per slot offset.
type Slotframe struct {
	Handle int
	Length int
	cells  map[int]Cell
}

func newSlotframe(handle, length int) *Slotframe {
	return &Slotframe{
		Handle: handle,
		Length: length,
		cells:  make(map[int]Cell),
	}
}

// Cell returns the cell at a slot offset.
func (sf *Slotframe) Cell(slotOffset int) (Cell, bool) {
	c, ok := sf.cells[slotOffset]
	return c, ok
}

func (sf *Slotframe) NumCells() int {
	return len(sf.cells)
}

// Cells returns all cells ordered by slot offset.
func (sf *Slotframe) Cells() []Cell {
	res := make([]Cell, 0, len(sf.cells))
	for _, c := range sf.cells {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SlotOffset < res[j].SlotOffset
	})
	return res
}

// ScheduledCell is a cell with the handle of its slotframe.
type ScheduledCell struct {
	Cell
	Handle int
}

// Schedule is the set of slotframes of a mote.
type Schedule struct {
	slotframes []*Slotframe // ordered by handle
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

// AddSlotframe creates an empty slotframe. The handle must be unused.
func (s *Schedule) AddSlotframe(handle, length int) *Slotframe {
	logger.AssertTrue(length > 0, "slotframe length must be positive")
	logger.AssertNil(s.Slotframe(handle), "slotframe %d already exists", handle)
	sf := newSlotframe(handle, length)
	s.slotframes = append(s.slotframes, sf)
	sort.Slice(s.slotframes, func(i, j int) bool {
		return s.slotframes[i].Handle < s.slotframes[j].Handle
	})
	return sf
}

// Slotframe returns the slotframe with the handle, or nil.
func (s *Schedule) Slotframe(handle int) *Slotframe {
	for _, sf := range s.slotframes {
		if sf.Handle == handle {
			return sf
		}
	}
	return nil
}

// AddCell installs a cell. Adding an identical cell does nothing; a different cell in an occupied
// slot offset fails with ErrCellConflict unless replace is set.
func (s *Schedule) AddCell(handle int, cell Cell, replace bool) error {
	sf := s.Slotframe(handle)
	if sf == nil {
		return errors.Errorf("slotframe %d does not exist", handle)
	}
	logger.AssertTrue(cell.SlotOffset >= 0 && cell.SlotOffset < sf.Length,
		"slot offset %d out of slotframe of length %d", cell.SlotOffset, sf.Length)

	if existing, ok := sf.cells[cell.SlotOffset]; ok && !replace {
		if existing == cell {
			return nil
		}
		return errors.Wrapf(ErrCellConflict, "slotframe %d slot %d holds %s", handle, cell.SlotOffset, existing)
	}
	sf.cells[cell.SlotOffset] = cell
	return nil
}

// DeleteCell removes the cell at a slot offset, returning whether there was one.
func (s *Schedule) DeleteCell(handle int, slotOffset int) bool {
	sf := s.Slotframe(handle)
	if sf == nil {
		return false
	}
	if _, ok := sf.cells[slotOffset]; !ok {
		return false
	}
	delete(sf.cells, slotOffset)
	return true
}

// CellsAt returns the cells active at asn, lowest handle first.
func (s *Schedule) CellsAt(asn Asn) []ScheduledCell {
	var res []ScheduledCell
	for _, sf := range s.slotframes {
		if c, ok := sf.cells[int(asn%Asn(sf.Length))]; ok {
			res = append(res, ScheduledCell{Cell: c, Handle: sf.Handle})
		}
	}
	return res
}

// ActiveCell returns the cell of the lowest handle active at asn.
func (s *Schedule) ActiveCell(asn Asn) (ScheduledCell, bool) {
	cells := s.CellsAt(asn)
	if len(cells) == 0 {
		return ScheduledCell{}, false
	}
	return cells[0], true
}

// NextActiveAsn returns the first ASN after asn with an active cell, or Ever with an empty
// schedule.
func (s *Schedule) NextActiveAsn(asn Asn) Asn {
	next := Ever
	for _, sf := range s.slotframes {
		length := Asn(sf.Length)
		cur := asn % length
		for offset := range sf.cells {
			o := Asn(offset)
			var delta Asn
			if o > cur {
				delta = o - cur
			} else {
				delta = length - cur + o
			}
			if asn+delta < next {
				next = asn + delta
			}
		}
	}
	return next
}

// FreeSlotOffsets returns the slot offsets of a slotframe not used by any slotframe, ascending.
func (s *Schedule) FreeSlotOffsets(handle int) []int {
	sf := s.Slotframe(handle)
	if sf == nil {
		return nil
	}
	var free []int
	for offset := 0; offset < sf.Length; offset++ {
		used := false
		for _, other := range s.slotframes {
			if _, ok := other.cells[offset%other.Length]; ok {
				used = true
				break
			}
		}
		if !used {
			free = append(free, offset)
		}
	}
	return free
}

// CellsTo returns the cells dedicated to a neighbor, lowest handle first.
func (s *Schedule) CellsTo(neighbor MoteId) []ScheduledCell {
	var res []ScheduledCell
	for _, sf := range s.slotframes {
		for _, c := range sf.Cells() {
			if c.IsDedicatedTo(neighbor) {
				res = append(res, ScheduledCell{Cell: c, Handle: sf.Handle})
			}
		}
	}
	return res
}

// HasDedicatedTxCell tells whether a TX cell is dedicated to the neighbor.
func (s *Schedule) HasDedicatedTxCell(neighbor MoteId) bool {
	for _, c := range s.CellsTo(neighbor) {
		if c.IsTx() {
			return true
		}
	}
	return false
}

// NumCells returns the number of cells in all slotframes.
func (s *Schedule) NumCells() int {
	n := 0
	for _, sf := range s.slotframes {
		n += sf.NumCells()
	}
	return n
}

// Reset removes all slotframes.
func (s *Schedule) Reset() {
	s.slotframes = nil
}
