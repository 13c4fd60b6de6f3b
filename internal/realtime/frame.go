package realtime

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// EventReady is sent once on every new stream before any application event.
const EventReady = "ready"

var ErrInvalidEvent = errors.New("invalid event name")

var pingFrame = []byte(": ping\n\n")

// Encode renders one SSE frame: "event: <name>\ndata: <json>\n\n".
func Encode(event string, payload any) ([]byte, error) {
	if event == "" || strings.ContainsAny(event, "\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}

	var b bytes.Buffer
	b.Grow(len(event) + len(data) + 16)
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\ndata: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}

func readyFrame() []byte {
	b, _ := Encode(EventReady, map[string]bool{"ok": true})
	return b
}
