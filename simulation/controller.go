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

package simulation

import (
	"github.com/pkg/errors"

	"github.com/atiselsts/6tisch-simulator-sub000/engine"
	"github.com/atiselsts/6tisch-simulator-sub000/logger"
	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// Controller drives a context hosted by StartAsync from another goroutine. Requests are posted to
// the engine goroutine and take effect between two events.
type Controller interface {
	CtrlResume(until Asn) (<-chan engine.RunStatus, error)
	CtrlPause() error
	CtrlTerminate() error
	CtrlSendPacket(id MoteId) error
}

type simulationController struct {
	c *Context
}

// CtrlResume runs the hosted engine until the given ASN (Ever for the horizon). A run that ends
// is finished on the engine goroutine before its status is delivered.
func (sc *simulationController) CtrlResume(until Asn) (<-chan engine.RunStatus, error) {
	c := sc.c
	done := c.eng.Go(until)
	out := make(chan engine.RunStatus, 1)
	go func() {
		status := <-done
		if status != engine.RunFinished && status != engine.RunTerminated {
			out <- status
			close(out)
			return
		}
		c.eng.PostAsync(func() {
			if err := c.finish(); err != nil {
				logger.Errorf("finishing simulation failed: %v", err)
			}
			out <- status
			close(out)
		})
	}()
	return out, nil
}

func (sc *simulationController) CtrlPause() error {
	sc.c.eng.Pause()
	return nil
}

func (sc *simulationController) CtrlTerminate() error {
	sc.c.eng.RequestTerminate(0)
	return nil
}

func (sc *simulationController) CtrlSendPacket(id MoteId) error {
	c := sc.c
	m := c.Mote(id)
	if m == nil {
		return errors.Errorf("mote %d does not exist", id)
	}
	c.eng.PostAsync(func() {
		logger.Debugf("CtrlSendPacket: mote %d", id)
		m.SendSinglePacket()
	})
	return nil
}

type readonlySimulationController struct {
}

var readonlySimulationError = errors.Errorf("simulation is readonly")

func (r readonlySimulationController) CtrlResume(until Asn) (<-chan engine.RunStatus, error) {
	return nil, readonlySimulationError
}

func (r readonlySimulationController) CtrlPause() error {
	return readonlySimulationError
}

func (r readonlySimulationController) CtrlTerminate() error {
	return readonlySimulationError
}

func (r readonlySimulationController) CtrlSendPacket(id MoteId) error {
	return readonlySimulationError
}

func NewSimulationController(c *Context) Controller {
	if !c.cfg.ReadOnly {
		return &simulationController{c}
	} else {
		return readonlySimulationController{}
	}
}
