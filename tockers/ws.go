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
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSCouplings exchange messages with a websocket server.  Each request
// is written as a text message, and the next message read is the
// reply.
type WSCouplings struct {
	URL string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	sync.Mutex
	conn *websocket.Conn
}

func NewWSCouplings(u string) *WSCouplings {
	return &WSCouplings{
		URL: u,
	}
}

// Start creates the websocket session.
func (c *WSCouplings) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	d := c.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}

	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}

	c.Lock()
	c.conn = conn
	c.Unlock()

	return nil
}

func (c *WSCouplings) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	c.Lock()
	defer c.Unlock()

	if c.conn == nil {
		return nil, errors.New("websocket not started")
	}

	if deadline, have := ctx.Deadline(); have {
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
		defer func() {
			c.conn.SetWriteDeadline(time.Time{})
			c.conn.SetReadDeadline(time.Time{})
		}()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, request); err != nil {
		return nil, err
	}

	for {
		_, bs, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if len(bs) == 0 {
			continue
		}
		return bs, nil
	}
}

// Stop terminates the websocket connection.
func (c *WSCouplings) Stop(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}
