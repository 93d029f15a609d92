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

// Package event defines the pending actions of the simulation and the queue ordering them.
package event

import (
	"fmt"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Kind selects what a pending Action does when dispatched.
type Kind uint8

const (
	KindMarker Kind = iota
	KindActiveCell
	KindPropagate
	KindAppTimer
	KindAppBurst
	KindDioTimer
	KindDaoTimer
	KindEbTimer
	KindKeepAlive
	KindFragHousekeeping
	KindSixpTimeout
	KindJoinTimeout
	KindConnectivityRefresh
	KindTerminate
	NumKinds
)

var kindNames = [NumKinds]string{
	KindMarker:              "marker",
	KindActiveCell:          "activeCell",
	KindPropagate:           "propagate",
	KindAppTimer:            "appTimer",
	KindAppBurst:            "appBurst",
	KindDioTimer:            "dioTimer",
	KindDaoTimer:            "daoTimer",
	KindEbTimer:             "ebTimer",
	KindKeepAlive:           "keepAlive",
	KindFragHousekeeping:    "fragHousekeeping",
	KindSixpTimeout:         "sixpTimeout",
	KindJoinTimeout:         "joinTimeout",
	KindConnectivityRefresh: "connectivityRefresh",
	KindTerminate:           "terminate",
}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Priority is the intra-slot order of an event; lower values run first within the same ASN.
type Priority uint8

const (
	PriorityStartSlot      Priority = 0
	PriorityStackTasks     Priority = 1
	PriorityTschActiveCell Priority = 2
	PriorityPropagate      Priority = 3
	PriorityEndSlot        Priority = 4
)

// Action is a pending action: what to do (Kind), for which mote, with an optional argument.
type Action struct {
	Kind Kind
	Mote MoteId
	Arg  int
}

func (a Action) String() string {
	return fmt.Sprintf("%s(mote=%d,arg=%d)", a.Kind, a.Mote, a.Arg)
}

// Event is an Action scheduled at an ASN with an intra-slot priority. An optional non-empty Tag
// identifies the event so it can be replaced or cancelled.
type Event struct {
	Asn      Asn
	Priority Priority
	Action   Action
	Tag      string

	seq   uint64 // insertion order, tie-breaker
	index int    // position in the heap
}

// Seq returns the insertion sequence number assigned when the event was queued.
func (e *Event) Seq() uint64 {
	return e.seq
}

func (e *Event) String() string {
	return fmt.Sprintf("Ev{asn=%d, prio=%d, %s, tag=%q, seq=%d}", e.Asn, e.Priority, e.Action, e.Tag, e.seq)
}

// Before reports whether e is ordered before other by (asn, priority, insertion order).
func (e *Event) Before(other *Event) bool {
	if e.Asn != other.Asn {
		return e.Asn < other.Asn
	}
	if e.Priority != other.Priority {
		return e.Priority < other.Priority
	}
	return e.seq < other.seq
}
