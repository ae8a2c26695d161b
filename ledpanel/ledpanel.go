// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ledpanel emulates a row of single-color LEDs at the console
// using ANSI color codes.
//
// Each LED is exposed as a gpio.PinIO, so code written against real
// output pins drives the terminal instead. Useful to watch a flash
// pattern before the enclosure with the actual LEDs exists.
package ledpanel

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for the panel.
type Opts struct {
	// Labels names the LEDs, one per slot, left to right.
	Labels []string
	// Palette converts colors to ANSI codes. Defaults to ansi256.Default.
	Palette *ansi256.Palette
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Labels: []string{"red", "green"},
}

// New returns a panel that repaints one console line on every change.
func New(opts *Opts) (*Panel, error) {
	return newPanel(colorable.NewColorableStdout(), opts)
}

func newPanel(w io.Writer, opts *Opts) (*Panel, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if len(opts.Labels) == 0 {
		return nil, errors.New("ledpanel: at least one label is required")
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Panel{
		w:       w,
		palette: *p,
		labels:  append([]string(nil), opts.Labels...),
		colors:  make([]color.NRGBA, len(opts.Labels)),
		lit:     make([]bool, len(opts.Labels)),
	}, nil
}

// Panel is a console LED strip emulator addressed through pins.
type Panel struct {
	w       io.Writer
	palette ansi256.Palette
	labels  []string
	colors  []color.NRGBA
	lit     []bool
	buf     bytes.Buffer
}

func (p *Panel) String() string {
	return "LEDPanel"
}

// Halt implements conn.Resource.
//
// It moves off the repainted line and resets the terminal attributes.
func (p *Panel) Halt() error {
	_, err := p.w.Write([]byte("\n\033[0m"))
	return err
}

// Pin returns the pin driving slot i, which shows color on when driven
// high. Out of range slots return nil, the way a registry miss does.
func (p *Panel) Pin(i int, on color.NRGBA) gpio.PinIO {
	if i < 0 || i >= len(p.labels) {
		return nil
	}
	p.colors[i] = on
	return &pin{panel: p, n: i}
}

func (p *Panel) set(n int, on bool) error {
	p.lit[n] = on
	return p.refresh()
}

func (p *Panel) refresh() error {
	// Repaint in place; allocate as little as possible per call.
	p.buf.Reset()
	_, _ = p.buf.WriteString("\r\033[0m")
	for i := range p.labels {
		c := unlit
		if p.lit[i] {
			c = p.colors[i]
		}
		_, _ = io.WriteString(&p.buf, p.palette.Block(c))
		_, _ = p.buf.WriteString("\033[0m " + p.labels[i] + "  ")
	}
	_, err := p.buf.WriteTo(p.w)
	return err
}

// unlit is the block color of an LED that is off: visible, but dark.
var unlit = color.NRGBA{R: 0x1c, G: 0x1c, B: 0x1c, A: 255}

// pin drives one panel slot.
type pin struct {
	panel *Panel
	n     int
}

func (p *pin) String() string {
	return p.Name()
}

// Name implements pin.Pin.
func (p *pin) Name() string {
	return p.panel.labels[p.n]
}

// Number implements pin.Pin.
func (p *pin) Number() int {
	return p.n
}

// Function implements pin.Pin.
func (p *pin) Function() string {
	if p.panel.lit[p.n] {
		return "Out/High"
	}
	return "Out/Low"
}

// In implements gpio.PinIn.
func (p *pin) In(pull gpio.Pull, edge gpio.Edge) error {
	return errors.New("ledpanel: input is not supported")
}

// Read implements gpio.PinIn. It returns the last driven level.
func (p *pin) Read() gpio.Level {
	return gpio.Level(p.panel.lit[p.n])
}

// WaitForEdge implements gpio.PinIn.
func (p *pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *pin) Pull() gpio.Pull {
	return gpio.Float
}

// DefaultPull implements gpio.PinIn.
func (p *pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out implements gpio.PinOut.
func (p *pin) Out(l gpio.Level) error {
	return p.panel.set(p.n, l == gpio.High)
}

// PWM implements gpio.PinOut.
func (p *pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("ledpanel: pwm is not supported")
}

// Halt implements conn.Resource.
func (p *pin) Halt() error {
	return p.Out(gpio.Low)
}

var _ conn.Resource = &Panel{}
var _ fmt.Stringer = &Panel{}
var _ gpio.PinIO = &pin{}
