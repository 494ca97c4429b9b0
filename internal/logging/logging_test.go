// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLogFormatter(t *testing.T) {
	f := &LogFormatter{}
	entry := &log.Entry{
		Time:    time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "claim check complete\n",
		Data:    log.Fields{"request_id": "a1b2c3d4", "label": "TRUE"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)

	if !strings.HasPrefix(line, "[2026-08-23 12:00:00] [a1b2c3d4] [info ]") {
		t.Errorf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, "claim check complete") {
		t.Errorf("message missing: %q", line)
	}
	if !strings.Contains(line, "label=TRUE") {
		t.Errorf("data field missing: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line must end with newline")
	}
}

func TestLogFormatter_NoRequestID(t *testing.T) {
	f := &LogFormatter{}
	entry := &log.Entry{
		Time:    time.Now(),
		Level:   log.WarnLevel,
		Message: "something odd",
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)

	if !strings.Contains(line, "[--------]") {
		t.Errorf("placeholder request id missing: %q", line)
	}
	if !strings.Contains(line, "[warn ]") {
		t.Errorf("warning should render as warn: %q", line)
	}
}
