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
	"github.com/godbus/dbus"
	"github.com/sirupsen/logrus"
)

const (
	lightsDbusName = "org.luminode.Lights"
	lightsDbusPath = "/org/luminode/Lights"
)

// lightsClient drives the lighting daemon over D-Bus. It implements
// both the shutdown and preset sides of the power policy.
type lightsClient struct {
	log *logrus.Logger
}

func newLightsClient(log *logrus.Logger) *lightsClient {
	return &lightsClient{log: log}
}

func (c *lightsClient) call(method string, store interface{}, args ...interface{}) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object(lightsDbusName, lightsDbusPath)
	call := obj.Call(lightsDbusName+"."+method, 0, args...)
	if store == nil {
		return call.Err
	}
	return call.Store(store)
}

// Shutdown turns the light output off. The lighting daemon treats a
// repeated TurnOff as a no-op, so this is safe to call on every sample
// while the battery stays below the threshold.
func (c *lightsClient) Shutdown() {
	if err := c.call("TurnOff", nil); err != nil {
		c.log.Errorf("Error turning lights off: %v", err)
	}
}

func (c *lightsClient) CurrentPresetID() int {
	var preset int32
	if err := c.call("GetPreset", &preset); err != nil {
		c.log.Errorf("Error reading current preset: %v", err)
		return 0
	}
	return int(preset)
}

func (c *lightsClient) ApplyPreset(id int) {
	if err := c.call("SetPreset", nil, int32(id)); err != nil {
		c.log.Errorf("Error applying preset %d: %v", id, err)
	}
}
