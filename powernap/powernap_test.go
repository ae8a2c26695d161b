// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package powernap

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestCode(t *testing.T) {
	var testData = []struct {
		code     Code
		expected time.Duration
	}{
		{0, 16 * time.Millisecond},
		{1, 32 * time.Millisecond},
		{5, 512 * time.Millisecond},
		{9, 8192 * time.Millisecond},
	}
	for _, entry := range testData {
		if d := entry.code.Duration(); d != entry.expected {
			t.Errorf("code %d: expected %s, got %s", entry.code, entry.expected, d)
		}
	}
	if s := Code(9).String(); s != "8.192s" {
		t.Errorf("unexpected String: %q", s)
	}
	if s := Code(12).String(); s != "Code(12)" {
		t.Errorf("unexpected String for an invalid code: %q", s)
	}
}

func TestDecompose(t *testing.T) {
	var testData = []struct {
		d        time.Duration
		expected []Code
	}{
		{0, nil},
		{-time.Second, nil},
		{time.Millisecond, []Code{0}},
		{16 * time.Millisecond, []Code{0}},
		{100 * time.Millisecond, []Code{3}},
		{5 * time.Second, []Code{9}},
		{8192 * time.Millisecond, []Code{9}},
		{16 * time.Second, []Code{9, 9}},
		{17 * time.Second, []Code{9, 9, 6}},
	}
	for _, entry := range testData {
		t.Run(fmt.Sprint(entry.d), func(st *testing.T) {
			got := Decompose(entry.d)
			if diff := cmp.Diff(entry.expected, got); diff != "" {
				st.Errorf("unexpected codes (-expected +got):\n%s", diff)
			}
			var total time.Duration
			for _, c := range got {
				total += c.Duration()
			}
			if total < entry.d {
				st.Errorf("codes sum to %s, less than the %s asked for", total, entry.d)
			}
		})
	}
}

func TestScheduler_Sleep(t *testing.T) {
	w := &fakeWake{}
	s := New(w)
	if err := s.Sleep(3); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]time.Duration{128 * time.Millisecond}, w.armed); diff != "" {
		t.Errorf("unexpected arms (-expected +got):\n%s", diff)
	}
	if err := s.Sleep(10); err == nil {
		t.Fatal("an out-of-range code must be rejected")
	}
	if len(w.armed) != 1 {
		t.Errorf("a rejected code must not arm, got %v", w.armed)
	}
}

func TestScheduler_SleepFor(t *testing.T) {
	w := &fakeWake{}
	s := New(w)
	if err := s.SleepFor(16 * time.Second); err != nil {
		t.Fatal(err)
	}
	expected := []time.Duration{8192 * time.Millisecond, 8192 * time.Millisecond}
	if diff := cmp.Diff(expected, w.armed); diff != "" {
		t.Errorf("unexpected arms (-expected +got):\n%s", diff)
	}

	w.armed = nil
	if err := s.SleepFor(0); err != nil {
		t.Fatal(err)
	}
	if len(w.armed) != 0 {
		t.Errorf("a zero duration must not arm, got %v", w.armed)
	}
}

func TestSysWake(t *testing.T) {
	ch := SysWake{}.Arm(time.Millisecond)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("wake event never arrived")
	}
	select {
	case <-ch:
		t.Fatal("a wake event must be one-shot")
	default:
	}

	// Non-positive durations deliver without waiting.
	select {
	case <-SysWake{}.Arm(0):
	default:
		t.Fatal("a zero arm must deliver immediately")
	}
}

// fakeWake records arms and wakes instantly.
type fakeWake struct {
	armed []time.Duration
}

func (f *fakeWake) Arm(d time.Duration) <-chan struct{} {
	f.armed = append(f.armed, d)
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	return ch
}
