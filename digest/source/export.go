package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/theimaginaryfoundation/digest-o-bot/digest"
)

// ExportSource streams messages out of a chat export JSON file. The input is
// expected to be either:
// - a top-level JSON array: [ { ...message... }, ... ]
// - a top-level JSON object containing an array field (e.g. { "messages": [ ... ] })
//
// It uses a streaming decoder and never reads the full file into memory at
// once.
type ExportSource struct {
	// Path is the export file to read.
	Path string
	// ArrayField optionally names the message array inside a top-level
	// object. Empty means the first array field found.
	ArrayField string
}

type exportRecord struct {
	Date          string `json:"date"`
	Text          string `json:"text"`
	ChannelTitle  string `json:"channel_title"`
	ChannelHandle string `json:"channel_handle"`
	Channel       string `json:"channel"`
}

// timestamp layouts accepted on the wire, tried in order.
var exportLayouts = []string{
	digest.TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Fetch streams the export, keeping messages inside the window and channel
// set, ordered by timestamp then arrival.
func (s *ExportSource) Fetch(ctx context.Context, window Window, channels []string) ([]digest.Message, error) {
	if s.Path == "" {
		return nil, errors.New("export fetch: path is empty")
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("export fetch: open input: %w", err)
	}
	defer f.Close()

	// Exports are often one huge line; use a larger buffer than default.
	dec := json.NewDecoder(bufio.NewReaderSize(f, 1<<20))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("export fetch: read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("export fetch: expected JSON array/object, got %T", tok)
	}

	filter := newChannelFilter(channels)
	var messages []digest.Message

	switch delim {
	case '[':
		if err := s.readArray(ctx, dec, window, filter, &messages); err != nil {
			return nil, err
		}
	case '{':
		if err := s.readObject(ctx, dec, window, filter, &messages); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("export fetch: unsupported top-level delimiter %q", delim)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].TimestampUTC < messages[j].TimestampUTC
	})
	for i := range messages {
		messages[i].SourceIndex = i
	}
	return messages, nil
}

// readArray consumes array elements after the opening '[' and the closing
// ']' itself.
func (s *ExportSource) readArray(ctx context.Context, dec *json.Decoder, window Window, filter channelFilter, out *[]digest.Message) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var rec exportRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("export fetch: decode record: %w", err)
		}
		msg, ok := recordToMessage(rec, window, filter)
		if !ok {
			continue
		}
		*out = append(*out, msg)
	}
	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("export fetch: read closing array token: %w", err)
	} else if d, ok := tok.(json.Delim); !ok || d != ']' {
		return fmt.Errorf("export fetch: expected closing ']', got %v", tok)
	}
	return nil
}

func (s *ExportSource) readObject(ctx context.Context, dec *json.Decoder, window Window, filter channelFilter, out *[]digest.Message) error {
	foundArray := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("export fetch: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("export fetch: expected string key, got %T", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("export fetch: read value token for key %q: %w", key, err)
		}

		isTarget := s.ArrayField != "" && key == s.ArrayField
		if !isTarget && s.ArrayField == "" && !foundArray {
			if d, ok := valTok.(json.Delim); ok && d == '[' {
				isTarget = true
			}
		}

		if isTarget {
			d, ok := valTok.(json.Delim)
			if !ok || d != '[' {
				return fmt.Errorf("export fetch: key %q was chosen as array but value isn't an array", key)
			}
			foundArray = true
			if err := s.readArray(ctx, dec, window, filter, out); err != nil {
				return err
			}
			continue
		}

		if err := skipValue(dec, valTok); err != nil {
			return fmt.Errorf("export fetch: skip key %q value: %w", key, err)
		}
	}
	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("export fetch: read closing object token: %w", err)
	} else if d, ok := tok.(json.Delim); !ok || d != '}' {
		return fmt.Errorf("export fetch: expected closing '}', got %v", tok)
	}
	if !foundArray {
		return errors.New("export fetch: no message array found in top-level object")
	}
	return nil
}

func recordToMessage(rec exportRecord, window Window, filter channelFilter) (digest.Message, bool) {
	handle := rec.ChannelHandle
	if handle == "" {
		handle = rec.Channel
	}
	if rec.Text == "" || !filter.allows(handle) {
		return digest.Message{}, false
	}
	t, ok := parseExportTime(rec.Date)
	if !ok || !window.Contains(t) {
		return digest.Message{}, false
	}
	return digest.Message{
		Text:          rec.Text,
		TimestampUTC:  digest.FormatTimestamp(t),
		ChannelTitle:  rec.ChannelTitle,
		ChannelHandle: handle,
	}, true
}

func parseExportTime(s string) (time.Time, bool) {
	for _, layout := range exportLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// skipValue consumes the rest of the value whose first token was already
// read.
func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}

	switch d {
	case '{', '[':
		// Consume tokens until the matching closing delimiter.
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
