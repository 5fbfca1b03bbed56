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

package core

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Comcast/ntta/util"
)

// Warning is a kind of warning that can be turned off.
type Warning string

const (
	WarnOverlapIdem      Warning = "overlap_idem"
	WarnPluginLoadFailed Warning = "plugin_load_failed"
	WarnUnsupportedQuery Warning = "unsupported_query"
	WarnParser           Warning = "parser_warning"
	WarnHashCollision    Warning = "hash_collision"
)

// WarningDescriptions documents each Warning.
var WarningDescriptions = map[Warning]string{
	WarnOverlapIdem:      "symbol tables overlap, so one value shadows (or overwrites) another",
	WarnPluginLoadFailed: "a parser or tocker could not be constructed and was skipped",
	WarnUnsupportedQuery: "a query uses a temporal operator the searcher can't answer",
	WarnParser:           "a network document has a non-fatal problem",
	WarnHashCollision:    "two different states share a hash, so one was treated as the other",
}

// ListWarnings returns the known warnings sorted by name.
func ListWarnings() []Warning {
	acc := make([]Warning, 0, len(WarningDescriptions))
	for w := range WarningDescriptions {
		acc = append(acc, w)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Warnings records which warnings are enabled.  The zero value has
// every warning enabled.
type Warnings struct {
	disabled map[Warning]bool
	all      bool
}

func NewWarnings() *Warnings {
	return &Warnings{
		disabled: make(map[Warning]bool),
	}
}

// Disable turns off the named warnings.
func (ws *Warnings) Disable(names ...string) error {
	if ws.disabled == nil {
		ws.disabled = make(map[Warning]bool)
	}
	for _, name := range names {
		w := Warning(strings.TrimSpace(name))
		if _, have := WarningDescriptions[w]; !have {
			return fmt.Errorf("unknown warning %q", name)
		}
		ws.disabled[w] = true
	}
	return nil
}

// DisableAll turns off every warning.
func (ws *Warnings) DisableAll() {
	ws.all = true
}

func (ws *Warnings) Enabled(w Warning) bool {
	if ws == nil {
		return true
	}
	return !ws.all && !ws.disabled[w]
}

// Config carries what evaluation needs beyond its arguments.
type Config struct {
	// Logger defaults to util.Discard.
	Logger *slog.Logger

	Warnings *Warnings

	// Interpreters compile TockerSources.  Defaults to
	// DefaultInterpreters.
	Interpreters map[string]Interpreter
}

// DefaultConfig logs nothing and enables every warning.
func DefaultConfig() *Config {
	return &Config{
		Logger:   util.Discard,
		Warnings: NewWarnings(),
	}
}

// Log never returns nil.
func (c *Config) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return util.Discard
	}
	return c.Logger
}

// Warn logs at slog.LevelWarn if the warning is enabled.
func (c *Config) Warn(w Warning, msg string, args ...any) {
	if c != nil && !c.Warnings.Enabled(w) {
		return
	}
	c.Log().Warn(msg, append([]any{"warning", string(w)}, args...)...)
}

func (c *Config) Trace(msg string, args ...any) {
	util.Trace(c.Log(), msg, args...)
}

func (c *Config) interpreters() map[string]Interpreter {
	if c == nil || c.Interpreters == nil {
		return DefaultInterpreters
	}
	return c.Interpreters
}
