/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tockers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings exchange messages through an MQTT broker.  A request
// is published to RequestTopic, and the next message heard on
// ResponseTopic is the reply.
//
// Topics can have the form TOPIC:QOS.
type MQTTCouplings struct {
	Client        mqtt.Client
	Quiesce       uint
	RequestTopic  string
	ResponseTopic string

	// Timeout bounds waiting for a reply when the context has no
	// deadline.
	Timeout time.Duration

	sync.Mutex
	responses chan []byte
}

// NewMQTTCouplings makes MQTTCouplings for the broker (for example
// "tcp://localhost:1883").
func NewMQTTCouplings(broker, clientID, reqTopic, respTopic string) *MQTTCouplings {
	c := &MQTTCouplings{
		Quiesce:       100,
		RequestTopic:  reqTopic,
		ResponseTopic: respTopic,
		Timeout:       10 * time.Second,
		responses:     make(chan []byte, 16),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(10 * time.Second)
	opts.CleanSession = true

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(msg.Topic(), msg.Payload())
	}

	c.Client = mqtt.NewClient(opts)

	return c
}

// inHandler queues an incoming reply.  A reply nobody is waiting for
// is dropped when the queue is full.
func (c *MQTTCouplings) inHandler(topic string, payload []byte) {
	select {
	case c.responses <- payload:
	default:
	}
}

// Start creates the MQTT session and subscribes to the response
// topic.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	topic, qos := parseTopic(c.ResponseTopic)
	if topic == "" {
		return fmt.Errorf("no response topic")
	}
	if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
		return t.Error()
	}

	return nil
}

func (c *MQTTCouplings) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	c.Lock()
	defer c.Unlock()

	// Drop stale replies.
DRAIN:
	for {
		select {
		case <-c.responses:
		default:
			break DRAIN
		}
	}

	topic, qos := parseTopic(c.RequestTopic)
	token := c.Client.Publish(topic, qos, false, request)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	if _, have := ctx.Deadline(); !have && 0 < c.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case bs := <-c.responses:
		return bs, nil
	}
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	c.Client.Disconnect(c.Quiesce)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	var topic string
	var qos byte
	if _, err := fmt.Sscanf(strings.Replace(s, ":", " ", 1), "%s %d", &topic, &qos); err == nil {
		return topic, qos
	}
	return s, 0
}
