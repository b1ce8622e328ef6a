/*
luminode-controller - Power management for the Luminode LED controller
Copyright (C) 2024, The Luminode Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/luminode/luminode-controller/battery"
	"github.com/luminode/luminode-controller/power"
	"github.com/luminode/luminode-controller/sampler"
	"github.com/luminode/luminode-controller/settings"
)

const (
	tickInterval = time.Second
	serialBaud   = 115200
)

var version = "No version provided"

var log = logrus.New()

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"battery configuration file"`
	SerialPort string `arg:"--serial" help:"read voltage from a serial measurement MCU instead of the onboard ADC"`
	LogLevel   string `arg:"--loglevel" help:"log level: debug, info, warn, error"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	args := Args{
		ConfigFile: settings.DefaultPath,
		LogLevel:   "info",
	}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Info("Running version: ", version)

	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	doc, found, err := settings.Load(args.ConfigFile)
	if err != nil {
		return err
	}
	if !found {
		log.Infof("No battery settings at %s, writing defaults", args.ConfigFile)
		if err := settings.Save(args.ConfigFile, doc); err != nil {
			log.Errorf("Could not write default settings: %v", err)
		}
	}

	src, err := makeSampler(args, doc)
	if err != nil {
		return err
	}

	model := battery.NewModel(doc.BatteryConfig())
	lights := newLightsClient(log)
	engine := power.NewEngine(model, src, power.NewSystemClock(), lights, lights, log)
	applySettings(engine, doc)

	if err := startService(engine, args.ConfigFile, doc); err != nil {
		return err
	}

	publisher := newPublisherFromEnv(log)
	if publisher == nil {
		log.Info("MQTT_BROKER not set, telemetry publishing disabled")
	}

	log.Infof("Battery type %s, sampling every %s", doc.Type, engine.ReadingInterval())

	var lastCount uint64
	ticker := time.NewTicker(tickInterval)
	for range ticker.C {
		engine.Tick()

		st := engine.Status()
		if st.SampleCount == lastCount {
			continue
		}
		lastCount = st.SampleCount

		log.Debugf("Battery %.2fV %.1f%%, next sample in %ds",
			st.Voltage, st.LevelPercent, st.SecondsUntilSample)
		if st.Valid() {
			if err := sendBatterySignal(float64(st.Voltage), float64(st.LevelPercent)); err != nil {
				log.Error("Error sending battery signal: ", err)
			}
			publisher.publish(st)
		}
	}
	return nil
}

func makeSampler(args Args, doc settings.Document) (power.VoltageSampler, error) {
	channel := -1
	if doc.HasPin() {
		channel = *doc.Pin
	}
	if args.SerialPort != "" {
		return sampler.NewUART(args.SerialPort, serialBaud, channel), nil
	}
	return sampler.NewADC("", channel)
}

// applySettings pushes the loaded document through the engine setters.
// The indicator threshold goes in before the auto-off threshold so a
// valid document survives the cross-field clamping unchanged.
func applySettings(e *power.Engine, doc settings.Document) {
	e.SetReadingInterval(time.Duration(doc.IntervalMs) * time.Millisecond)
	e.SetAutoOffEnabled(doc.AutoOff.Enabled)
	e.SetIndicatorEnabled(doc.Indicator.Enabled)
	e.SetIndicatorPreset(doc.Indicator.Preset)
	e.SetIndicatorDuration(doc.Indicator.Duration)
	e.SetIndicatorThreshold(doc.Indicator.Threshold)
	e.SetAutoOffThreshold(doc.AutoOff.Threshold)
}
