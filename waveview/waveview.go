// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveview renders recorded bus edges as a logic-analyzer style
// timing diagram.
//
// Timing is the hard part of a bit-banged bus, and a picture settles
// arguments about it faster than a log ever does. Feed it the edge list
// a simulated line captured and look at the slots.
package waveview

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Edge is one recorded line transition: at T the line went to High.
type Edge struct {
	T    time.Duration
	High bool
}

// Opts represents the options available for rendering.
type Opts struct {
	// Width and Height of the rendered image in pixels.
	Width  int
	Height int
	// Span is the stretch of time shown. Zero fits the edges with a
	// little slack.
	Span time.Duration
	// Title is drawn above the trace when not empty.
	Title string
	// Face is the caption font. Defaults to basicfont.Face7x13.
	Face font.Face
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Width:  1024,
	Height: 256,
}

// Render draws the edges as a stepped trace on a white background, with
// a time grid captioned in bus time. The line idles high, so the trace
// starts high unless the first edge says otherwise.
func Render(edges []Edge, opts *Opts) (image.Image, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Width <= 0 {
		o.Width = DefaultOpts.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultOpts.Height
	}
	if o.Face == nil {
		o.Face = basicfont.Face7x13
	}
	span := o.Span
	if span <= 0 {
		if len(edges) == 0 {
			return nil, errors.New("waveview: nothing to render")
		}
		// 5% slack past the last edge so the final level is visible.
		span = edges[len(edges)-1].T * 21 / 20
		if span <= 0 {
			span = time.Microsecond
		}
	}

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(o.Face)

	var (
		left   = 12.0
		right  = float64(o.Width) - 12.0
		top    = 16.0
		bottom = float64(o.Height) - 28.0
	)
	if o.Title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawString(o.Title, left, top)
		top += 12
	}
	x := func(t time.Duration) float64 {
		return left + (right-left)*float64(t)/float64(span)
	}
	y := func(high bool) float64 {
		if high {
			return top + 8
		}
		return bottom - 8
	}

	// Time grid with captions.
	step := tickStep(span)
	dc.SetLineWidth(1)
	for t := time.Duration(0); t <= span; t += step {
		dc.SetRGB(0.86, 0.86, 0.86)
		dc.DrawLine(x(t), top, x(t), bottom)
		dc.Stroke()
		dc.SetRGB(0.45, 0.45, 0.45)
		dc.DrawString(t.String(), x(t)+2, float64(o.Height)-10)
	}

	// The trace itself.
	level := true
	if len(edges) > 0 {
		level = !edges[0].High
	}
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(2)
	dc.MoveTo(x(0), y(level))
	for _, e := range edges {
		if e.T > span {
			break
		}
		dc.LineTo(x(e.T), y(level))
		dc.LineTo(x(e.T), y(e.High))
		level = e.High
	}
	dc.LineTo(x(span), y(level))
	dc.Stroke()
	return dc.Image(), nil
}

// RenderPNG renders the edges and encodes the result as PNG.
func RenderPNG(w io.Writer, edges []Edge, opts *Opts) error {
	img, err := Render(edges, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// TrueTypeFace parses a TTF blob into a caption font at the given point
// size, for nicer output than the built-in bitmap face.
func TrueTypeFace(ttf []byte, points float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("waveview: parsing font: %s", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}

// tickStep picks a 1-2-5 series grid step that yields at most 10 ticks.
func tickStep(span time.Duration) time.Duration {
	for step := time.Microsecond; ; step *= 10 {
		for _, m := range []time.Duration{1, 2, 5} {
			if s := m * step; span/s <= 10 {
				return s
			}
		}
	}
}
