// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermo

import "go.uber.org/zap"

// Logger is the minimal leveled logging surface the loop needs.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// NullLogger drops everything. It is the default.
type NullLogger struct{}

// Debugf implements Logger.
func (l *NullLogger) Debugf(format string, v ...interface{}) {}

// Infof implements Logger.
func (l *NullLogger) Infof(format string, v ...interface{}) {}

// Warnf implements Logger.
func (l *NullLogger) Warnf(format string, v ...interface{}) {}

// Errorf implements Logger.
func (l *NullLogger) Errorf(format string, v ...interface{}) {}

// NewDefaultLogger returns a zap-backed Logger writing human-readable
// lines to stderr. debug widens the level to include Debugf output.
func NewDefaultLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zap.Must(cfg.Build()).Sugar()
}

var _ Logger = &NullLogger{}
var _ Logger = &zap.SugaredLogger{}
