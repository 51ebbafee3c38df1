// Copyright 2025 UMH Systems GmbH
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

package sentry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

// debounceWindow limits how often the same issue is forwarded to sentry.
const debounceWindow = 2 * time.Hour

type issueKey struct {
	issueType IssueType
	title     string
}

var (
	debounceMu sync.Mutex
	debounce   = true
	lastSent   = map[issueKey]time.Time{}
)

func setDebounce(enabled bool) {
	debounceMu.Lock()
	defer debounceMu.Unlock()

	debounce = enabled
	lastSent = map[issueKey]time.Time{}
}

func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithContext(err, issueType, log, nil)
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext logs err and forwards it to sentry with context as
// tags. Repeats of the same issue within the debounce window are only logged.
// Fatal issues are always sent, flushed, and end in a panic.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var level sentry.Level
	switch issueType {
	case IssueTypeFatal:
		level = sentry.LevelFatal
		log.Errorf("fatal: %s", err)
	case IssueTypeError:
		level = sentry.LevelError
		log.Error(err)
	default:
		level = sentry.LevelWarning
		log.Warn(err)
	}

	if issueType == IssueTypeFatal || !debounced(issueKey{issueType, issueTitle(err)}, time.Now()) {
		sentry.CurrentHub().Clone().CaptureEvent(newEvent(level, err, context))
	}

	if issueType == IssueTypeFatal {
		sentry.Flush(5 * time.Second)
		log.Panic("Fatal error")
	}
}

// ReportEditorError reports a failure inside an editor session with the session and operation as tags.
func ReportEditorError(log *zap.SugaredLogger, sessionID string, operation string, err error) {
	ReportIssueWithContext(err, IssueTypeError, log, map[string]interface{}{
		"session_id": sessionID,
		"operation":  operation,
	})
}

// debounced reports whether key was sent within the window before now, and
// records now as its last send otherwise.
func debounced(key issueKey, now time.Time) bool {
	debounceMu.Lock()
	defer debounceMu.Unlock()

	if !debounce {
		return false
	}
	if last, ok := lastSent[key]; ok && now.Sub(last) < debounceWindow {
		return true
	}
	lastSent[key] = now

	return false
}

// issueTitle is the first phrase of the message, up to a period, comma or
// colon, so wrapped errors of one kind group together.
func issueTitle(err error) string {
	message := err.Error()
	if idx := strings.IndexAny(message, ".,:"); idx > 0 {
		message = message[:idx]
	}
	if len(message) > 100 {
		message = message[:97] + "..."
	}

	return message
}

func newEvent(level sentry.Level, err error, context map[string]interface{}) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level
	event.Message = err.Error()
	event.Exception = []sentry.Exception{{
		Type:       issueTitle(err),
		Value:      err.Error(),
		Stacktrace: sentry.ExtractStacktrace(err),
	}}
	event.Fingerprint = []string{"{{ default }}", "level: " + string(level)}

	for key, value := range context {
		switch v := value.(type) {
		case string, int, int64, float64, bool:
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags[key] = fmt.Sprint(v)
		default:
			if event.Extra == nil {
				event.Extra = make(map[string]interface{})
			}
			event.Extra[key] = v
		}

		if key == "operation" {
			event.Fingerprint = append(event.Fingerprint, fmt.Sprintf("operation: %v", value))
		}
	}

	return event
}
