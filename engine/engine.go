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

// Package engine implements the discrete-event scheduler driving a simulation one ASN at a time.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atiselsts/6tisch-simulator-sub000/event"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	"github.com/atiselsts/6tisch-simulator-sub000/progctx"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

const (
	TerminateTag = "engine.terminate"
	tracerName   = "github.com/atiselsts/6tisch-simulator-sub000/engine"
)

// RunStatus tells why a call to Run returned.
type RunStatus int

const (
	RunFinished RunStatus = iota // the event queue ran empty
	RunPaused                    // the pause target was reached, or a pause was requested
	RunTerminated                // a terminate event fired
	RunCancelled                 // the context was cancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunFinished:
		return "finished"
	case RunPaused:
		return "paused"
	case RunTerminated:
		return "terminated"
	case RunCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Handler executes the pending actions of the kinds it is registered for.
type Handler interface {
	HandleAction(asn Asn, action event.Action)
}

// Observer is notified synchronously after every dispatched event.
type Observer interface {
	OnEventDispatched(ev *event.Event)
}

type goRequest struct {
	until Asn
	done  chan RunStatus
}

// Engine is the discrete-event scheduler. Events are dispatched one at a time, to completion, in
// (asn, priority, insertion order). All protocol state is mutated only from the goroutine calling
// Run; other goroutines interact through PostAsync, Go, Pause, Stop and Join.
type Engine struct {
	queue      *event.Queue
	curAsn     atomic.Uint64
	pauseAsn   Asn
	terminated bool
	handlers   [event.NumKinds]Handler
	observers  []Observer
	tracer     trace.Tracer

	taskChan       chan func()
	goChan         chan goRequest
	pauseRequested atomic.Bool
	running        atomic.Bool
	hostCtx        *progctx.ProgCtx
	hostOnce       sync.Once

	Counters struct {
		DispatchedEvents uint64
		ReplacedEvents   uint64
		CancelledEvents  uint64
		PerKind          [event.NumKinds]uint64
	}
}

// Option configures an Engine.
type Option func(e *Engine)

// WithTracerProvider makes the engine create its run spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		queue:    event.NewQueue(),
		pauseAsn: Ever,
		tracer:   otel.Tracer(tracerName),
		taskChan: make(chan func(), 100),
		goChan:   make(chan goRequest, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentAsn returns the ASN of the event being or last dispatched. Safe from any goroutine.
func (e *Engine) CurrentAsn() Asn {
	return e.curAsn.Load()
}

// RegisterHandler registers h as the executor of all actions of the given kind.
func (e *Engine) RegisterHandler(kind event.Kind, h Handler) {
	logger.AssertTrue(kind < event.NumKinds && kind != event.KindTerminate && kind != event.KindMarker,
		"kind %s is handled by the engine", kind)
	e.handlers[kind] = h
}

func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// ScheduleAt queues action at the given ASN and intra-slot priority. A non-empty tag replaces any
// event pending under the same tag. Scheduling in the past is a programming error.
func (e *Engine) ScheduleAt(asn Asn, priority event.Priority, action event.Action, tag string) {
	cur := e.CurrentAsn()
	if asn < cur {
		logger.Panicf("cannot schedule %s at ASN %d in the past (current ASN %d)", action, asn, cur)
	}
	replaced := e.queue.Add(&event.Event{
		Asn:      asn,
		Priority: priority,
		Action:   action,
		Tag:      tag,
	})
	if replaced != nil {
		e.Counters.ReplacedEvents++
	}
}

// ScheduleIn queues action delay slots after the current ASN.
func (e *Engine) ScheduleIn(delay Asn, priority event.Priority, action event.Action, tag string) {
	e.ScheduleAt(e.CurrentAsn()+delay, priority, action, tag)
}

// Cancel removes the event pending under tag, if any.
func (e *Engine) Cancel(tag string) bool {
	if e.queue.Remove(tag) {
		e.Counters.CancelledEvents++
		return true
	}
	return false
}

// IsScheduled returns the ASN of the event pending under tag.
func (e *Engine) IsScheduled(tag string) (Asn, bool) {
	ev, ok := e.queue.Pending(tag)
	if !ok {
		return 0, false
	}
	return ev.Asn, true
}

// PendingEvents returns the number of queued events.
func (e *Engine) PendingEvents() int {
	return e.queue.Len()
}

// PauseAt makes Run return once every event with an ASN up to and including asn was dispatched.
func (e *Engine) PauseAt(asn Asn) {
	e.pauseAsn = asn
}

// Terminate schedules a forced stop delay slots from now, after all other events of that slot.
// It is a no-op once the engine has terminated.
func (e *Engine) Terminate(delay Asn) {
	if e.terminated {
		return
	}
	e.ScheduleAt(e.CurrentAsn()+delay, event.PriorityEndSlot, event.Action{Kind: event.KindTerminate}, TerminateTag)
}

func (e *Engine) IsTerminated() bool {
	return e.terminated
}

// Run dispatches events until the queue empties, a terminate event fires, the pause target is
// reached, a pause is requested, or ctx is done.
func (e *Engine) Run(ctx context.Context) RunStatus {
	if e.terminated {
		return RunTerminated
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.pauseRequested.Store(false)
	e.running.Store(true)
	defer e.running.Store(false)

	startAsn := e.CurrentAsn()
	startCount := e.Counters.DispatchedEvents
	_, span := e.tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.Int64("asn.start", int64(startAsn)),
	))

	status := e.runLoop(ctx)

	span.SetAttributes(
		attribute.Int64("asn.end", int64(e.CurrentAsn())),
		attribute.Int64("events", int64(e.Counters.DispatchedEvents-startCount)),
		attribute.String("status", status.String()),
	)
	span.End()
	return status
}

func (e *Engine) runLoop(ctx context.Context) RunStatus {
	for {
		e.handleTasks()

		if e.terminated {
			return RunTerminated
		}
		if ctx.Err() != nil {
			return RunCancelled
		}
		if e.pauseRequested.Swap(false) {
			return RunPaused
		}

		next := e.queue.NextEvent()
		if next == nil {
			return RunFinished
		}
		if next.Asn > e.pauseAsn {
			if e.pauseAsn > e.CurrentAsn() {
				e.curAsn.Store(e.pauseAsn) // nothing left up to the target: advance time to it
			}
			e.pauseAsn = Ever
			return RunPaused
		}

		e.processEvent(e.queue.PopNext())
	}
}

func (e *Engine) processEvent(ev *event.Event) {
	logger.AssertTrue(ev.Asn >= e.CurrentAsn())
	e.curAsn.Store(ev.Asn)
	e.Counters.DispatchedEvents++
	e.Counters.PerKind[ev.Action.Kind]++

	switch ev.Action.Kind {
	case event.KindTerminate:
		e.terminated = true
		logger.Debugf("engine terminated at ASN %d", ev.Asn)
	case event.KindMarker:
		break
	default:
		h := e.handlers[ev.Action.Kind]
		if h == nil {
			logger.Panicf("no handler registered for %s", ev.Action)
		}
		h.HandleAction(ev.Asn, ev.Action)
	}

	for _, o := range e.observers {
		o.OnEventDispatched(ev)
	}
}

// PostAsync posts a task to be executed by the goroutine running the engine, between two events.
func (e *Engine) PostAsync(task func()) {
	e.taskChan <- task
}

func (e *Engine) handleTasks() {
	for {
		select {
		case f := <-e.taskChan:
			e.runTask(f)
		default:
			return
		}
	}
}

func (e *Engine) runTask(f func()) {
	defer func() {
		if err := recover(); err != nil {
			logger.Errorf("engine handle task failed: %v", err)
		}
	}()
	f()
}

// StartAsync hosts the engine on a background goroutine of ctx. Later calls are no-ops.
func (e *Engine) StartAsync(ctx *progctx.ProgCtx) {
	e.hostOnce.Do(func() {
		e.hostCtx = ctx
		ctx.Go("engine", e.hostLoop)
	})
}

func (e *Engine) hostLoop() {
	done := e.hostCtx.Done()
	for {
		select {
		case f := <-e.taskChan:
			e.runTask(f)
		case req := <-e.goChan:
			if req.until != Ever {
				e.PauseAt(req.until)
			}
			req.done <- e.Run(e.hostCtx)
			close(req.done)
		case <-done:
			return
		}
	}
}

// Go asks the background engine to run until the given ASN (Ever for no limit). The returned
// channel yields the RunStatus once the run stops.
func (e *Engine) Go(until Asn) <-chan RunStatus {
	logger.AssertNotNil(e.hostCtx, "engine is not hosted, call StartAsync first")
	done := make(chan RunStatus, 1)
	if e.hostCtx.Err() != nil {
		done <- RunCancelled
		close(done)
		return done
	}
	select {
	case e.goChan <- goRequest{until: until, done: done}:
	case <-e.hostCtx.Done():
		done <- RunCancelled
		close(done)
	}
	return done
}

// Pause asks a running engine to return from Run before the next event. No-op if not running.
func (e *Engine) Pause() {
	if e.running.Load() {
		e.pauseRequested.Store(true)
	}
}

// IsRunning tells whether Run is currently dispatching events.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Stop cancels the background host. Calling it more than once, or without a host, is a no-op.
func (e *Engine) Stop() {
	if e.hostCtx != nil {
		e.hostCtx.Cancel(nil)
	}
}

// Join waits for the background host to exit.
func (e *Engine) Join() {
	if e.hostCtx != nil {
		e.hostCtx.Wait()
	}
}

// RequestTerminate is the controller-side Terminate: it posts the request to the engine goroutine.
func (e *Engine) RequestTerminate(delay Asn) {
	e.PostAsync(func() {
		e.Terminate(delay)
	})
}
