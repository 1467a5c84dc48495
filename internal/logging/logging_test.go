// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriterFormats(t *testing.T) {
	cases := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=\"ue attached\"", "rnti=61"}},
		{"json", []string{`"msg":"ue attached"`, `"rnti":61`}},
		{"JSON", []string{`"msg":"ue attached"`}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		NewLoggerWithWriter(slog.LevelInfo, c.format, &buf).Info("ue attached", "rnti", 61)
		for _, w := range c.want {
			if !strings.Contains(buf.String(), w) {
				t.Fatalf("format %s: output %q does not contain %q", c.format, buf.String(), w)
			}
		}
	}
}

func TestLevelFilteringAndChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf).With("component", "mac")
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, "component=mac") || !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing or without component: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"Error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	std := StdLogger(NewLoggerWithWriter(slog.LevelDebug, "text", &buf), slog.LevelError)
	std.Print("tls handshake error")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("std logger output = %q, want ERROR level", buf.String())
	}
}
