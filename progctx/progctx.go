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

// Package progctx manages the lifetime of goroutines hosting a simulation, e.g. an engine loop that
// runs in the background while a controller pauses, inspects and terminates it.
package progctx

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
)

// ProgCtx represents the context of a program during its lifetime.
type ProgCtx struct {
	context.Context // the inner context of the program
	wg              sync.WaitGroup
	cancel          context.CancelFunc
	lock            sync.Mutex
	routines        map[string]int
	deferred        []func()
	cause           error
}

// WaitCount returns the number of goroutines to wait for.
func (ctx *ProgCtx) WaitCount() int {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()

	total := 0
	for _, c := range ctx.routines {
		total += c
	}
	return total
}

// Cancel cancels the program context with a given reason, which may be an error or nil.
// It is only effective the first time it's called.
func (ctx *ProgCtx) Cancel(reason interface{}) {
	ctx.lock.Lock()
	if ctx.Err() != nil {
		ctx.lock.Unlock()
		return
	}
	deferred := ctx.deferred
	ctx.deferred = nil
	if e, ok := reason.(error); ok {
		ctx.cause = e
	}
	ctx.cancel()
	ctx.lock.Unlock()

	if ctx.cause != nil {
		logger.Warnf("program exit: %v", ctx.cause)
	} else {
		logger.Debugf("program exit: %v", reason)
	}

	for _, f := range deferred {
		f()
	}
}

// Cause returns the error the context was cancelled with, or nil.
func (ctx *ProgCtx) Cause() error {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()
	return ctx.cause
}

// WaitAdd adds a new goroutine to wait for.
func (ctx *ProgCtx) WaitAdd(name string, delta int) {
	ctx.lock.Lock()
	ctx.routines[name] += delta
	ctx.lock.Unlock()

	ctx.wg.Add(delta)
}

// WaitDone notifies that a goroutine has finished.
func (ctx *ProgCtx) WaitDone(name string) {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()

	count := ctx.routines[name]
	if count <= 0 {
		logger.Panicf("routine %s is not running, should not call WaitDone", name)
	}

	ctx.routines[name] -= 1
	ctx.wg.Done()
}

// Wait waits for all goroutines to finish.
func (ctx *ProgCtx) Wait() {
	ctx.lock.Lock()
	logger.Debugf("program context waiting routines: %v", ctx.routines)
	ctx.lock.Unlock()

	ctx.wg.Wait()
}

// Go runs f on a new named goroutine that is waited for. A panic inside f cancels the context
// with the panic as cause instead of crashing the process.
func (ctx *ProgCtx) Go(name string, f func()) {
	ctx.WaitAdd(name, 1)
	go func() {
		defer ctx.WaitDone(name)
		defer func() {
			if r := recover(); r != nil {
				ctx.Cancel(errors.Errorf("routine %s panicked: %v", name, fmt.Sprint(r)))
			}
		}()
		f()
	}()
}

// Defer registers a function to be called when the program context is cancelled.
// The function will be called when `Cancel` is first called.
func (ctx *ProgCtx) Defer(f func()) {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()
	if ctx.Err() != nil {
		panic(errors.Errorf("Can not `Defer` after context is done"))
	}

	ctx.deferred = append(ctx.deferred, f)
}

// New creates a new ProgCtx from the parent context.
func New(parent context.Context) *ProgCtx {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &ProgCtx{
		Context:  ctx,
		cancel:   cancel,
		routines: map[string]int{},
	}
}
