package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports an inbound payload that matches neither known message
// shape. The raw payload is retained for diagnostics.
type DecodeError struct {
	Raw    []byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable channel message: %s", e.Reason)
}

// Decode classifies one inbound channel payload as a StepEvent or a
// TerminalEvent. Classification happens once, on the presence of the "status"
// discriminator: payloads carrying it must be well-formed terminal events,
// payloads without it must carry a step index. Anything else fails with a
// *DecodeError rather than being coerced into the closer shape.
func Decode(raw []byte) (Message, error) {
	var probe struct {
		Status *string          `json:"status"`
		Step   *json.RawMessage `json:"step"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{Raw: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if probe.Status != nil {
		var event TerminalEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, &DecodeError{Raw: raw, Reason: fmt.Sprintf("malformed terminal event: %v", err)}
		}
		switch event.Status {
		case StatusDone, StatusError:
			return event, nil
		default:
			return nil, &DecodeError{Raw: raw, Reason: fmt.Sprintf("unknown status %q", event.Status)}
		}
	}

	if probe.Step == nil {
		return nil, &DecodeError{Raw: raw, Reason: "missing both status and step fields"}
	}
	if string(*probe.Step) == "null" {
		return nil, &DecodeError{Raw: raw, Reason: "null step index"}
	}
	var event StepEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, &DecodeError{Raw: raw, Reason: fmt.Sprintf("malformed step event: %v", err)}
	}
	if event.Step < 0 {
		return nil, &DecodeError{Raw: raw, Reason: fmt.Sprintf("negative step index %d", event.Step)}
	}
	return event, nil
}
