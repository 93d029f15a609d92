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
	"strings"

	"github.com/atiselsts/6tisch-simulator-sub000/packet"
)

const dropQueueFullPrefix = "tx queue full: "

// DropReasonQueueFull returns the drop reason of a frame of type t refused by a full TX queue.
func DropReasonQueueFull(t packet.Type) string {
	return dropQueueFullPrefix + strings.ToLower(t.String())
}

// IsQueueFullReason tells whether a drop reason was returned by DropReasonQueueFull.
func IsQueueFullReason(reason string) bool {
	return strings.HasPrefix(reason, dropQueueFullPrefix)
}

// TxQueue is the bounded queue of frames waiting for a TX cell. Privileged frames are queued after
// the last privileged frame, ahead of all others, and in FIFO order among themselves.
type TxQueue struct {
	capacity int
	frames   []*packet.Packet
}

func NewTxQueue(capacity int) *TxQueue {
	return &TxQueue{
		capacity: capacity,
		frames:   make([]*packet.Packet, 0, capacity),
	}
}

// Enqueue queues a frame, or returns false and the drop reason when the queue is full.
func (q *TxQueue) Enqueue(p *packet.Packet) (bool, string) {
	if len(q.frames) >= q.capacity {
		return false, DropReasonQueueFull(p.Type())
	}
	if !p.Type().IsPrivileged() {
		q.frames = append(q.frames, p)
		return true, ""
	}
	pos := 0
	for i, f := range q.frames {
		if f.Type().IsPrivileged() {
			pos = i + 1
		}
	}
	q.frames = append(q.frames, nil)
	copy(q.frames[pos+1:], q.frames[pos:])
	q.frames[pos] = p
	return true, ""
}

// Remove removes a frame, returning whether it was queued.
func (q *TxQueue) Remove(p *packet.Packet) bool {
	for i, f := range q.frames {
		if f == p {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			return true
		}
	}
	return false
}

// First returns the first queued frame accepted by match, or nil.
func (q *TxQueue) First(match func(p *packet.Packet) bool) *packet.Packet {
	for _, f := range q.frames {
		if match(f) {
			return f
		}
	}
	return nil
}

// Flush empties the queue and returns the frames it held.
func (q *TxQueue) Flush() []*packet.Packet {
	frames := q.frames
	q.frames = make([]*packet.Packet, 0, q.capacity)
	return frames
}

func (q *TxQueue) Len() int {
	return len(q.frames)
}

func (q *TxQueue) Capacity() int {
	return q.capacity
}

// Frames returns a copy of the queued frames in transmission order.
func (q *TxQueue) Frames() []*packet.Packet {
	return append([]*packet.Packet(nil), q.frames...)
}
