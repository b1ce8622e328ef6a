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
	"errors"
	"sync"
	"time"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/luminode/luminode-controller/power"
	"github.com/luminode/luminode-controller/settings"
)

const (
	dbusName = "org.luminode.Battery"
	dbusPath = "/org/luminode/Battery"
)

type service struct {
	mu         sync.Mutex
	engine     *power.Engine
	configFile string
	doc        settings.Document
}

func startService(engine *power.Engine, configFile string, doc settings.Document) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		engine:     engine,
		configFile: configFile,
		doc:        doc,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Status returns voltage, charge percent and seconds until the next
// sample. Voltage and percent are -1 until a valid measurement exists.
func (s *service) Status() (float64, float64, int64, *dbus.Error) {
	st := s.engine.Status()
	return float64(st.Voltage), float64(st.LevelPercent), st.SecondsUntilSample, nil
}

func (s *service) SetInterval(ms int32) *dbus.Error {
	s.engine.SetReadingInterval(time.Duration(ms) * time.Millisecond)
	s.persist()
	return nil
}

func (s *service) SetAutoOff(enabled bool, threshold int32) *dbus.Error {
	s.engine.SetAutoOffEnabled(enabled)
	s.engine.SetAutoOffThreshold(int(threshold))
	s.persist()
	return nil
}

func (s *service) SetIndicator(enabled bool, preset, threshold, duration int32) *dbus.Error {
	s.engine.SetIndicatorEnabled(enabled)
	s.engine.SetIndicatorPreset(int(preset))
	s.engine.SetIndicatorDuration(int(duration))
	s.engine.SetIndicatorThreshold(int(threshold))
	s.persist()
	return nil
}

// persist saves the resolved engine state, so clamped values land in the
// settings file rather than the raw ones a caller sent.
func (s *service) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.IntervalMs = int(s.engine.ReadingInterval().Milliseconds())
	autoOff := s.engine.AutoOff()
	s.doc.AutoOff = settings.AutoOff{Enabled: autoOff.Enabled, Threshold: autoOff.Threshold}
	indicator := s.engine.Indicator()
	s.doc.Indicator = settings.Indicator{
		Enabled:   indicator.Enabled,
		Preset:    indicator.PresetID,
		Threshold: indicator.Threshold,
		Duration:  indicator.Duration,
	}

	if err := settings.Save(s.configFile, s.doc); err != nil {
		log.Errorf("Could not save battery settings: %v", err)
	}
}

// sendBatterySignal broadcasts a fresh measurement on the system bus.
func sendBatterySignal(voltage, percent float64) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}

	// No need to request a bus name to emit a signal.
	sig := &dbus.Signal{
		Path: dbus.ObjectPath(dbusPath),
		Name: dbusName + ".Battery",
		Body: []interface{}{voltage, percent},
	}
	return conn.Emit(sig.Path, sig.Name, sig.Body...)
}
