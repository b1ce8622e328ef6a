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
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/luminode/luminode-controller/power"
)

const defaultTopic = "luminode/battery"

// publisher pushes battery telemetry to an MQTT broker. A nil publisher
// is valid and publishes nothing.
type publisher struct {
	client mqtt.Client
	topic  string
	log    *logrus.Logger
}

// newPublisherFromEnv builds a publisher from MQTT_BROKER,
// MQTT_USERNAME, MQTT_PASSWORD and MQTT_TOPIC. Returns nil when no
// broker is configured.
func newPublisherFromEnv(log *logrus.Logger) *publisher {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		return nil
	}
	topic := os.Getenv("MQTT_TOPIC")
	if topic == "" {
		topic = defaultTopic
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:1883", broker))
	opts.SetClientID("luminode-battery")
	opts.SetUsername(os.Getenv("MQTT_USERNAME"))
	opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Infof("Connected to MQTT broker at %s", broker)
	})

	client := mqtt.NewClient(opts)
	client.Connect()
	return &publisher{client: client, topic: topic, log: log}
}

// publish sends the voltage and charge level. Readings taken while the
// broker is unreachable are dropped, not queued; the next sample
// supersedes them anyway.
func (p *publisher) publish(st power.Status) {
	if p == nil || !p.client.IsConnected() {
		return
	}
	p.send(p.topic+"/voltage", fmt.Sprintf("%.2f", st.Voltage))
	p.send(p.topic+"/level", fmt.Sprintf("%.1f", st.LevelPercent))
}

func (p *publisher) send(topic, payload string) {
	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		p.log.Errorf("Failed to publish to %s: %v", topic, token.Error())
	}
}
