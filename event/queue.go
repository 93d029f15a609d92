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

package event

import (
	"container/heap"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

type eventHeap []*Event

func (eh eventHeap) Len() int {
	return len(eh)
}

func (eh eventHeap) Less(i, j int) bool {
	return eh[i].Before(eh[j])
}

func (eh eventHeap) Swap(i, j int) {
	a, b := eh[i], eh[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	eh[i], eh[j] = b, a             // swap the elements
	eh[i].index, eh[j].index = i, j // fix the indexes
}

func (eh *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	*eh = append(*eh, e)
	e.index = len(*eh) - 1
}

func (eh *eventHeap) Pop() (elem interface{}) {
	n := len(*eh)
	e := (*eh)[n-1]
	(*eh)[n-1] = nil
	*eh = (*eh)[:n-1]
	e.index = -1
	return e
}

// Queue orders pending events by (asn, priority, insertion order). At most one event is pending
// per non-empty tag; adding an event under a pending tag replaces the pending one.
type Queue struct {
	h    eventHeap
	tags map[string]*Event
	seq  uint64
}

func NewQueue() *Queue {
	q := &Queue{
		h:    eventHeap{},
		tags: map[string]*Event{},
	}
	heap.Init(&q.h)
	return q
}

// Add queues e. It returns the event it replaced, if any.
func (q *Queue) Add(e *Event) (replaced *Event) {
	if e.Tag != "" {
		if old, ok := q.tags[e.Tag]; ok {
			heap.Remove(&q.h, old.index)
			replaced = old
		}
		q.tags[e.Tag] = e
	}
	e.seq = q.seq
	q.seq++
	heap.Push(&q.h, e)
	return
}

// Remove cancels the pending event with the given tag. It returns false if there was none.
func (q *Queue) Remove(tag string) bool {
	e, ok := q.tags[tag]
	if !ok {
		return false
	}
	logger.AssertTrue(e.index >= 0 && e.index < len(q.h))
	heap.Remove(&q.h, e.index)
	delete(q.tags, tag)
	return true
}

// Pending returns the pending event with the given tag.
func (q *Queue) Pending(tag string) (*Event, bool) {
	e, ok := q.tags[tag]
	return e, ok
}

func (q *Queue) Len() int {
	return len(q.h)
}

// NextTimestamp returns the ASN of the next event, or Ever if the queue is empty.
func (q *Queue) NextTimestamp() Asn {
	if len(q.h) == 0 {
		return Ever
	}
	return q.h[0].Asn
}

// NextEvent returns the next event without removing it, or nil.
func (q *Queue) NextEvent() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// PopNext removes and returns the next event, or nil if the queue is empty.
func (q *Queue) PopNext() *Event {
	if len(q.h) == 0 {
		return nil
	}
	e := heap.Pop(&q.h).(*Event)
	if e.Tag != "" && q.tags[e.Tag] == e {
		delete(q.tags, e.Tag)
	}
	return e
}
