// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command flashtherm reads a DS18B20 on a bit-banged 1-wire GPIO and
// flashes each temperature on a red/green LED pair, forever.
//
// With -sim it runs the same loop against a simulated bus and console
// LEDs, which is handy on a desk without the hardware.
package main

import (
	"flag"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"periph.io/x/flashtherm/blinker"
	"periph.io/x/flashtherm/ds18b20"
	"periph.io/x/flashtherm/ledpanel"
	"periph.io/x/flashtherm/owgpio"
	"periph.io/x/flashtherm/owgpio/owgpiotest"
	"periph.io/x/flashtherm/thermo"
	"periph.io/x/flashtherm/waveview"
)

func main() {
	busName := flag.String("bus", "GPIO4", "1-wire data pin")
	redName := flag.String("red", "GPIO17", "red LED pin")
	greenName := flag.String("green", "GPIO27", "green LED pin")
	cycle := flag.Duration("cycle", 16*time.Second, "time between measurements")
	sim := flag.Bool("sim", false, "run against a simulated sensor and console LEDs")
	trace := flag.String("trace", "", "sim only: write the first measurement's bus waveform to this PNG")
	verbose := flag.Bool("v", false, "log debug detail")
	flag.Parse()

	log := thermo.NewDefaultLogger(*verbose)

	var (
		sensor  thermo.Sensor
		display thermo.Display
		cleanup []conn.Resource
		err     error
	)
	if *sim {
		sensor, display, cleanup, err = simRig(log, *trace)
	} else {
		if *trace != "" {
			log.Warnf("-trace only works with -sim, ignoring")
		}
		sensor, display, cleanup, err = realRig(*busName, *redName, *greenName)
	}
	if err != nil {
		log.Fatalf("setting up: %s", err)
	}

	loop, err := thermo.New(sensor, display, nil, &thermo.Opts{Cycle: *cycle, Logger: log})
	if err != nil {
		log.Fatalf("setting up: %s", err)
	}

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Infof("got %s, stopping after the in-flight cycle", s)
		_ = loop.Halt()
	}()

	log.Infof("measuring every %s, ctrl-c to stop", *cycle)
	err = loop.Run()
	for i := len(cleanup) - 1; i >= 0; i-- {
		if herr := cleanup[i].Halt(); herr != nil {
			log.Warnf("halting %s: %s", cleanup[i], herr)
		}
	}
	if err != nil {
		log.Fatalf("loop: %s", err)
	}
}

// realRig wires the driver stack to host pins.
func realRig(busName, redName, greenName string) (thermo.Sensor, thermo.Display, []conn.Resource, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, nil, err
	}
	p := gpioreg.ByName(busName)
	if p == nil {
		return nil, nil, nil, errNoPin(busName)
	}
	bus, err := owgpio.New(p, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	sensor, err := ds18b20.New(bus, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	red := gpioreg.ByName(redName)
	if red == nil {
		return nil, nil, nil, errNoPin(redName)
	}
	green := gpioreg.ByName(greenName)
	if green == nil {
		return nil, nil, nil, errNoPin(greenName)
	}
	display, err := blinker.New(red, green, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return sensor, display, []conn.Resource{bus, display}, nil
}

// simRig wires the same stack to a simulated bus and a console panel.
func simRig(log *zap.SugaredLogger, trace string) (thermo.Sensor, thermo.Display, []conn.Resource, error) {
	clk := owgpiotest.NewClock()
	line := owgpiotest.NewLine(clk)
	therm := owgpiotest.NewThermometer(line, 327) // 20.4375°C
	therm.ConvertTime = 200 * time.Millisecond
	busOpts := owgpio.DefaultOpts
	busOpts.Timebase = clk
	bus, err := owgpio.New(line.Pin(), &busOpts)
	if err != nil {
		return nil, nil, nil, err
	}
	sensor, err := ds18b20.New(bus, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Infof("simulated sensor holding %s", ds18b20.Temperature(327))

	if trace != "" {
		if err := writeTrace(sensor, line, trace); err != nil {
			return nil, nil, nil, err
		}
		log.Infof("wrote the first measurement's waveform to %s", trace)
	}

	panel, err := ledpanel.New(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	display, err := blinker.New(
		panel.Pin(0, color.NRGBA{R: 255, A: 255}),
		panel.Pin(1, color.NRGBA{G: 255, A: 255}),
		nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return sensor, display, []conn.Resource{bus, panel, display}, nil
}

// writeTrace runs one measurement and renders the line activity it
// caused as a PNG timing diagram.
func writeTrace(sensor thermo.Sensor, line *owgpiotest.Line, path string) error {
	if _, err := sensor.ReadRaw(); err != nil {
		return err
	}
	recorded := line.Edges()
	edges := make([]waveview.Edge, len(recorded))
	for i, e := range recorded {
		edges[i] = waveview.Edge{T: e.T, High: bool(e.Level)}
	}
	face, err := waveview.TrueTypeFace(goregular.TTF, 12)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	opts := waveview.Opts{Width: 1600, Height: 240, Title: "first measurement", Face: face}
	if err := waveview.RenderPNG(f, edges, &opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type errNoPin string

func (e errNoPin) Error() string {
	return "no pin named " + string(e)
}
