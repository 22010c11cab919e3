// Copyright 2015 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/context"
)

// Client talks to a Handler.
type Client struct {
	user   string // HTTP Basic-Auth
	pass   string
	auth   bool
	base   string // URI to root of tree on server
	client *http.Client
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(name string) string {
	if name == "" {
		return c.base + "/processes"
	}
	return c.base + "/processes/" + url.PathEscape(name)
}

func (c *Client) do(ctx context.Context, method string, u string, v interface{}) error {
	req, e := http.NewRequest(method, u, nil)
	if e != nil {
		return e
	}
	req = req.WithContext(ctx)
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	req.Header.Set("Accept", mimeJson)

	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	body, e := ioutil.ReadAll(res.Body)
	if e != nil {
		return e
	}
	if res.StatusCode != http.StatusOK {
		rerr := &Error{}
		if json.Unmarshal(body, rerr) != nil || rerr.Message == "" {
			rerr.Code = res.StatusCode
			rerr.Message = strings.TrimSpace(string(body))
			if rerr.Message == "" {
				rerr.Message = res.Status
			}
		}
		return rerr
	}
	if v == nil {
		return nil
	}
	if e := json.Unmarshal(body, v); e != nil {
		return fmt.Errorf("bad response from %s: %v", u, e)
	}
	return nil
}

// Processes returns the names of all supervised applications.
func (c *Client) Processes(ctx context.Context) ([]string, error) {
	var names []string
	if e := c.do(ctx, "GET", c.url(""), &names); e != nil {
		return nil, e
	}
	return names, nil
}

// Process returns detailed information for one application.
func (c *Client) Process(ctx context.Context, name string) (*ProcessInfo, error) {
	info := &ProcessInfo{}
	if e := c.do(ctx, "GET", c.url(name), info); e != nil {
		return nil, e
	}
	return info, nil
}

// All returns information for every application, in profile order.
// Applications that vanish between the two requests are skipped.
func (c *Client) All(ctx context.Context) ([]*ProcessInfo, error) {
	names, e := c.Processes(ctx)
	if e != nil {
		return nil, e
	}
	infos := make([]*ProcessInfo, 0, len(names))
	for _, n := range names {
		if info, e := c.Process(ctx, n); e == nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Restart asks the supervisor to restart the named application.
func (c *Client) Restart(ctx context.Context, name string) error {
	return c.do(ctx, "POST", c.url(name)+"/restart", nil)
}

// Log fetches the log.  If since is the id of the last response and wait
// is positive, the server holds the request until something new is
// logged, or until wait expires.  When nothing changed the returned
// records are empty and the id equals since.
func (c *Client) Log(ctx context.Context, since int64, wait time.Duration) (*LogInfo, error) {
	q := url.Values{}
	if since != 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	if wait > 0 {
		q.Set("wait", strconv.Itoa(int(wait/time.Second)))
	}
	u := c.base + "/log"
	if len(q) != 0 {
		u += "?" + q.Encode()
	}
	info := &LogInfo{}
	if e := c.do(ctx, "GET", u, info); e != nil {
		return nil, e
	}
	return info, nil
}

// NewClient returns a client for the server at base, for example
// "http://127.0.0.1:8321".  A nil client selects http.DefaultClient.
func NewClient(client *http.Client, base string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}
