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
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the run options that are not part of the simulated network's settings.
type Config struct {
	ReadOnly       bool
	StatsFile      string
	EnergyDir      string
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
}

func DefaultConfig() *Config {
	return &Config{
		ReadOnly: false,
	}
}

// Option adjusts the Config of a new Context.
type Option func(cfg *Config)

// WithReadOnly makes the controller of the context reject all control operations.
func WithReadOnly() Option {
	return func(cfg *Config) {
		cfg.ReadOnly = true
	}
}

// WithStatsFile writes the network-wide state CSV log to fileName.
func WithStatsFile(fileName string) Option {
	return func(cfg *Config) {
		cfg.StatsFile = fileName
	}
}

// WithEnergyDir saves the energy tables into dir when the run finishes.
func WithEnergyDir(dir string) Option {
	return func(cfg *Config) {
		cfg.EnergyDir = dir
	}
}

// WithRegisterer registers the run metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *Config) {
		cfg.Registerer = reg
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *Config) {
		cfg.TracerProvider = tp
	}
}
