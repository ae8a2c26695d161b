// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package blinker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
)

func TestNew_fail(t *testing.T) {
	rec := &recorder{}
	ok := &fakePin{name: "ok", rec: rec}
	if d, err := New(nil, ok, nil); d != nil || err == nil {
		t.Fatal("nil pins must be rejected")
	}
	if d, err := New(ok, ok, &Opts{}); d != nil || err == nil {
		t.Fatal("zero durations must be rejected")
	}
	bad := &fakePin{name: "bad", rec: rec, fail: true}
	if d, err := New(bad, ok, nil); d != nil || err == nil {
		t.Fatal("an undrivable pin must be rejected")
	}
}

func TestNew_startsDark(t *testing.T) {
	rec := &recorder{}
	red := &fakePin{name: "red", rec: rec}
	green := &fakePin{name: "green", rec: rec}
	d, err := New(red, green, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"red=Low", "green=Low"}, rec.events); diff != "" {
		t.Errorf("unexpected drives (-expected +got):\n%s", diff)
	}
	if s := d.String(); s != "blinker{red, green}" {
		t.Fatal(s)
	}
}

func TestFlash(t *testing.T) {
	var testData = []struct {
		pattern  byte
		expected string
	}{
		{0x00, "G"},
		{0x01, "R"},
		{0x05, "RGR"},
		{0x0f, "RRRR"},
		{0x19, "RRGGR"},
		{0x80, "RGGGGGGG"},
		{0xff, "RRRRRRRR"},
	}
	for _, entry := range testData {
		t.Run(fmt.Sprintf("%#02x", entry.pattern), func(st *testing.T) {
			rec, d := newTestDev(st)
			if err := d.Flash(entry.pattern); err != nil {
				st.Fatal(err)
			}
			if got := pulses(rec.events); got != entry.expected {
				st.Errorf("expected %q, got %q", entry.expected, got)
			}
		})
	}
}

// TestFlash_sequence pins down the full drive/sleep interleaving of one
// pattern, not just the pulse colors.
func TestFlash_sequence(t *testing.T) {
	rec, d := newTestDev(t)
	if err := d.Flash(0x05); err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"red=High", "10ms", "red=Low", "20ms",
		"green=High", "10ms", "green=Low", "20ms",
		"red=High", "10ms", "red=Low", "20ms",
	}
	if diff := cmp.Diff(expected, rec.events); diff != "" {
		t.Errorf("unexpected sequence (-expected +got):\n%s", diff)
	}
}

func TestShow(t *testing.T) {
	var testData = []struct {
		raw      int16
		expected string
	}{
		// Positive values show the whole-degree magnitude: 25 is 11001,
		// 85 is 1010101. Fractions truncate, so +0.5°C shows as zero.
		{401, "RRGGR"},
		{0x0550, "RGRGRGR"},
		{8, "G"},
		{0, "G"},
		// Negative values lead with a green sign pulse: 10 is 1010,
		// 55 is 110111.
		{-8, "GG"},
		{-162, "GRGRG"},
		{-880, "GRRGRRR"},
	}
	for _, entry := range testData {
		t.Run(fmt.Sprintf("%d", entry.raw), func(st *testing.T) {
			rec, d := newTestDev(st)
			if err := d.Show(entry.raw); err != nil {
				st.Fatal(err)
			}
			if got := pulses(rec.events); got != entry.expected {
				st.Errorf("expected %q, got %q", entry.expected, got)
			}
		})
	}
}

// TestShow_signGap verifies the sign pulse is set apart from the bit
// group by the longer inter-group pause.
func TestShow_signGap(t *testing.T) {
	rec, d := newTestDev(t)
	if err := d.Show(-8); err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"green=High", "10ms", "green=Low", "20ms",
		"50ms",
		"green=High", "10ms", "green=Low", "20ms",
	}
	if diff := cmp.Diff(expected, rec.events); diff != "" {
		t.Errorf("unexpected sequence (-expected +got):\n%s", diff)
	}
}

func TestShowNoDevice(t *testing.T) {
	rec, d := newTestDev(t)
	if err := d.ShowNoDevice(); err != nil {
		t.Fatal(err)
	}
	if got := pulses(rec.events); got != "RRR" {
		t.Errorf("expected RRR, got %q", got)
	}
}

func TestShowCRC(t *testing.T) {
	rec, d := newTestDev(t)
	if err := d.ShowCRC(); err != nil {
		t.Fatal(err)
	}
	if got := pulses(rec.events); got != "RGRG" {
		t.Errorf("expected RGRG, got %q", got)
	}
}

func TestActiveLow(t *testing.T) {
	rec := &recorder{}
	red := &fakePin{name: "red", rec: rec}
	green := &fakePin{name: "green", rec: rec}
	opts := Opts{On: 10 * time.Millisecond, Off: 20 * time.Millisecond, Gap: 50 * time.Millisecond, ActiveLow: true}
	d, err := New(red, green, &opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"red=High", "green=High"}, rec.events); diff != "" {
		t.Errorf("dark must drive high on common-anode wiring (-expected +got):\n%s", diff)
	}

	rec.events = nil
	sleep = rec.sleepFunc
	defer func() { sleep = time.Sleep }()
	if err := d.Flash(0); err != nil {
		t.Fatal(err)
	}
	expected := []string{"green=Low", "10ms", "green=High", "20ms"}
	if diff := cmp.Diff(expected, rec.events); diff != "" {
		t.Errorf("unexpected sequence (-expected +got):\n%s", diff)
	}
}

func TestPinError(t *testing.T) {
	_, d := newTestDev(t)
	d.red.(*fakePin).fail = true
	err := d.Flash(0x01)
	if err == nil {
		t.Fatal("a failing pin must surface")
	}
	if !strings.Contains(err.Error(), "blinker: driving red") {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestHalt(t *testing.T) {
	rec, d := newTestDev(t)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"red=Low", "green=Low"}, rec.events); diff != "" {
		t.Errorf("unexpected drives (-expected +got):\n%s", diff)
	}
}

func newTestDev(t *testing.T) (*recorder, *Dev) {
	t.Helper()
	rec := &recorder{}
	red := &fakePin{name: "red", rec: rec}
	green := &fakePin{name: "green", rec: rec}
	opts := Opts{On: 10 * time.Millisecond, Off: 20 * time.Millisecond, Gap: 50 * time.Millisecond}
	d, err := New(red, green, &opts)
	if err != nil {
		t.Fatal(err)
	}
	rec.events = nil
	sleep = rec.sleepFunc
	t.Cleanup(func() { sleep = time.Sleep })
	return rec, d
}

// pulses reduces an event log to the color sequence of its lit pulses.
func pulses(events []string) string {
	s := ""
	for _, e := range events {
		switch e {
		case "red=High":
			s += "R"
		case "green=High":
			s += "G"
		}
	}
	return s
}

// recorder logs pin drives and sleeps as one interleaved sequence.
type recorder struct {
	events []string
}

func (r *recorder) sleepFunc(d time.Duration) {
	r.events = append(r.events, d.String())
}

// fakePin records Out calls. The embedded interface panics on anything
// else, which doubles as a check that the display only ever drives.
type fakePin struct {
	gpio.PinIO
	name string
	rec  *recorder
	fail bool
}

func (f *fakePin) Name() string { return f.name }

func (f *fakePin) Out(l gpio.Level) error {
	if f.fail {
		return errors.New("injected failure")
	}
	f.rec.events = append(f.rec.events, fmt.Sprintf("%s=%s", f.name, l))
	return nil
}
