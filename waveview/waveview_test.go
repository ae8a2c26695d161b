// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveview

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

func TestRender(t *testing.T) {
	// A reset pulse with its presence answer.
	edges := []Edge{
		{0, false},
		{480 * time.Microsecond, true},
		{510 * time.Microsecond, false},
		{630 * time.Microsecond, true},
	}
	img, err := Render(edges, &Opts{Width: 320, Height: 120, Span: 960 * time.Microsecond, Title: "reset"})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 120 {
		t.Fatal(b)
	}
	if !isWhite(img, 1, 1) {
		t.Error("the background must be white")
	}
	if n := inked(img); n == 0 {
		t.Error("a trace must leave ink")
	}
}

func TestRender_autoSpan(t *testing.T) {
	edges := []Edge{{0, false}, {time.Millisecond, true}}
	if _, err := Render(edges, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRender_empty(t *testing.T) {
	if _, err := Render(nil, nil); err == nil {
		t.Fatal("no edges and no span must be rejected")
	}
	img, err := Render(nil, &Opts{Width: 100, Height: 50, Span: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if n := inked(img); n == 0 {
		t.Error("an idle line still draws a high trace")
	}
}

func TestRenderPNG(t *testing.T) {
	buf := &bytes.Buffer{}
	edges := []Edge{{0, false}, {70 * time.Microsecond, true}}
	if err := RenderPNG(buf, edges, &Opts{Width: 200, Height: 100, Span: 140 * time.Microsecond}); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatal(b)
	}
}

func TestTrueTypeFace(t *testing.T) {
	face, err := TrueTypeFace(goregular.TTF, 12)
	if err != nil {
		t.Fatal(err)
	}
	edges := []Edge{{0, false}, {10 * time.Microsecond, true}}
	opts := Opts{Width: 200, Height: 100, Span: 20 * time.Microsecond, Title: "read slot", Face: face}
	if _, err := Render(edges, &opts); err != nil {
		t.Fatal(err)
	}
	if _, err := TrueTypeFace([]byte("not a font"), 12); err == nil {
		t.Fatal("junk must not parse")
	}
}

func TestTickStep(t *testing.T) {
	var testData = []struct {
		span     time.Duration
		expected time.Duration
	}{
		{time.Microsecond, time.Microsecond},
		{10 * time.Microsecond, time.Microsecond},
		{11 * time.Microsecond, 2 * time.Microsecond},
		{960 * time.Microsecond, 100 * time.Microsecond},
		{16 * time.Second, 2 * time.Second},
	}
	for _, entry := range testData {
		if s := tickStep(entry.span); s != entry.expected {
			t.Errorf("%s: expected %s, got %s", entry.span, entry.expected, s)
		}
	}
}

func isWhite(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

// inked counts pixels that are not pure white.
func inked(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isWhite(img, x, y) {
				n++
			}
		}
	}
	return n
}
