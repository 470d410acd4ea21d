// Package source provides message inputs for the digest pipeline: a
// streaming reader over chat export JSON and a Telegram channel poller.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/digest-o-bot/digest"
)

// Window is a half-open UTC time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. A zero bound is open.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Source yields the messages of one window, oldest first, restricted to the
// given channel handles (all channels when empty).
type Source interface {
	Fetch(ctx context.Context, window Window, channels []string) ([]digest.Message, error)
}

// channelFilter matches handles case-insensitively, ignoring a leading '@'.
type channelFilter map[string]struct{}

func newChannelFilter(channels []string) channelFilter {
	if len(channels) == 0 {
		return nil
	}
	f := make(channelFilter, len(channels))
	for _, c := range channels {
		c = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "@"))
		if c != "" {
			f[c] = struct{}{}
		}
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f channelFilter) allows(handle string) bool {
	if f == nil {
		return true
	}
	handle = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	_, ok := f[handle]
	return ok
}
