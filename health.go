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

package relauncher

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// DefaultProbeTimeout bounds an HTTP probe whose Timeout is unset.
const DefaultProbeTimeout = 5 * time.Second

// HealthCheck decides whether a freshly launched application is healthy.
// Check returns nil if it is, and an error (normally a *ProbeError)
// explaining why not otherwise.  A descriptor with a nil HealthCheck is
// considered healthy as soon as it is launched.
type HealthCheck interface {
	Check(ctx context.Context) error
	String() string
}

// BindProbe is an indirect liveness signal: it tries to bind Addr itself.
// If the address is already in use, something is listening there and the
// application is taken to be healthy.  A successful bind, or any other
// error, means unhealthy.  No protocol is spoken.
type BindProbe struct {
	Addr string
}

func (b *BindProbe) String() string {
	return "bind " + b.Addr
}

func (b *BindProbe) Check(ctx context.Context) error {
	var lc net.ListenConfig
	l, e := lc.Listen(ctx, "tcp", b.Addr)
	if e == nil {
		l.Close()
		return &ProbeError{Check: b.String(), Err: ErrNothingListening}
	}
	if addrInUse(e) {
		return nil
	}
	return &ProbeError{Check: b.String(), Err: e}
}

// HTTPProbe issues a GET for URL, and is healthy only if the response
// status is exactly 200.  Redirects are followed, so the status is that of
// the final response.
type HTTPProbe struct {
	URL     string
	Timeout time.Duration // zero selects DefaultProbeTimeout
	Client  *http.Client  // nil selects a pooled client
}

func (h *HTTPProbe) String() string {
	return "http " + h.URL
}

func (h *HTTPProbe) Check(ctx context.Context) error {
	d := h.Timeout
	if d <= 0 {
		d = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	req, e := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if e != nil {
		return &ProbeError{Check: h.String(), Err: e}
	}
	client := h.Client
	if client == nil {
		client = probeClient
	}
	resp, e := client.Do(req)
	if e != nil {
		return &ProbeError{Check: h.String(), Err: e}
	}
	// Drain so the connection can be reused by the next probe.
	io.Copy(ioutil.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ProbeError{
			Check: h.String(),
			Err:   fmt.Errorf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}
	return nil
}

var probeClient = cleanhttp.DefaultPooledClient()
