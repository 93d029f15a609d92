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
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atiselsts/6tisch-simulator-sub000/logger"
)

// FileSink writes records as JSON lines, one object per record, through a zap JSON core.
type FileSink struct {
	fileName string
	file     *os.File
	zl       *zap.Logger
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "type",
		LineEnding: zapcore.DefaultLineEnding,
	}
}

// NewFileSink creates (or truncates) the file and returns a sink writing to it.
func NewFileSink(fileName string) (*FileSink, error) {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		return nil, errors.Wrapf(err, "creating simulation log file %s", fileName)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(newEncoderConfig()), zapcore.AddSync(f), zapcore.DebugLevel)
	logger.Debugf("simulation log file '%s' created.", fileName)
	return &FileSink{
		fileName: fileName,
		file:     f,
		zl:       zap.New(core),
	}, nil
}

// FileName returns the path of the sink's file.
func (s *FileSink) FileName() string {
	return s.fileName
}

// Write appends a record.
func (s *FileSink) Write(r *Record) {
	if s.zl == nil {
		return
	}
	fields := make([]zap.Field, 0, len(r.Fields)+2)
	fields = append(fields, zap.Uint64("asn", r.Asn), zap.Int("mote", r.Mote))
	fields = append(fields, r.Fields...)
	s.zl.Info(string(r.Type), fields...)
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	if s.zl == nil {
		return nil
	}
	_ = s.zl.Sync()
	s.zl = nil
	err := s.file.Close()
	s.file = nil
	return errors.Wrapf(err, "closing simulation log file %s", s.fileName)
}
