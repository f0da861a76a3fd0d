/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry records corpus-run metrics with OpenTelemetry and provides
// a small opt-in event sender for anonymous run summaries and crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "scriptturns/internal/log"
	"scriptturns/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
// - SCT_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - SCT_TELEMETRY_URL: URL to POST run summaries to
// - SCT_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SCT_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - SCT_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, events are dropped (no‑ops), even if opt‑in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv reads Config from the SCT_TELEMETRY_* variables.
func FromEnv() Config {
	optIn := parseBool(os.Getenv("SCT_TELEMETRY_OPT_IN"))
	cfg := Config{
		OptIn:        optIn,
		EventsURL:    strings.TrimSpace(os.Getenv("SCT_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SCT_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SCT_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SCT_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client posts run summaries from a background goroutine. Failed sends are
// dropped and a full queue drops new summaries.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan runEvent
	once   sync.Once
	closed chan struct{}
}

var defaultClient *Client
var defaultOnce sync.Once

// InitDefault initializes the package‑level default client from env when first used.
func InitDefault() {
	defaultOnce.Do(func() {
		NewDefault(FromEnv())
	})
}

// NewDefault creates and installs the default client with cfg.
func NewDefault(cfg Config) {
	defaultClient = New(cfg)
}

// New constructs a client.
func New(cfg Config) *Client {
	l := applog.WithComponent("telemetry")
	c := &Client{
		cfg:    cfg,
		log:    l,
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan runEvent, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// WithOptIn returns cfg with OptIn forced on when the config file opted in.
func (cfg Config) WithOptIn(optIn bool) Config {
	cfg.OptIn = cfg.OptIn || optIn
	return cfg
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether anonymous telemetry is enabled using the default client.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// RunSummary is the anonymous outcome of one batch run. It carries counts
// only; document and character names never leave the machine.
type RunSummary struct {
	RunID       string   `json:"run_id"`
	Documents   int      `json:"documents"`
	Missing     int      `json:"missing"`
	NoCues      int      `json:"no_cues"`
	Gated       int      `json:"gated"`
	Lines       int      `json:"lines"`
	Cues        int      `json:"cues"`
	Turns       int      `json:"turns"`
	Records     int      `json:"records"`
	Format      string   `json:"format"`
	Profiles    []string `json:"profiles,omitempty"`
	Concurrency int      `json:"concurrency"`
	Indexed     bool     `json:"indexed"`
	ElapsedMs   int64    `json:"elapsed_ms"`
}

// runEvent is the body posted to the events URL.
type runEvent struct {
	Name    string     `json:"name"`
	App     string     `json:"app"`
	Version string     `json:"version"`
	OS      string     `json:"os"`
	Arch    string     `json:"arch"`
	TS      string     `json:"ts"`
	Run     RunSummary `json:"run"`
}

// EventRunCompleted names the event posted by RunCompleted.
const EventRunCompleted = "run_completed"

// RunCompleted queues a run summary if telemetry is enabled. It never blocks.
func (c *Client) RunCompleted(sum RunSummary) {
	if !c.Enabled() {
		return
	}
	ev := runEvent{
		Name:    EventRunCompleted,
		App:     version.App,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Run:     sum,
	}
	select {
	case c.q <- ev:
	default:
		// queue full
	}
}

// RunCompleted using the default client.
func RunCompleted(sum RunSummary) { InitDefault(); defaultClient.RunCompleted(sum) }

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.q:
			c.send(ev)
		}
	}
}

func (c *Client) send(ev runEvent) {
	buf, err := json.Marshal(ev)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("run summary sent", slog.String("run_id", ev.Run.RunID), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already‑serialized crash report to the configured crash URL if opt‑in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash using default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
