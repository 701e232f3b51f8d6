// Package tools holds the registry of pluggable tools and the built-in
// shell, file, and screenshot tools.
package tools

import "errors"

// ErrConflictingPayloads is returned by Merge when both outcomes carry a
// binary payload; there is no meaningful way to combine two.
var ErrConflictingPayloads = errors.New("tools: cannot merge two outcomes with payloads")

// ToolOutcome is the result of one tool invocation. Error is set for
// failures the model should see; Output is the normal text result;
// Payload carries binary data (a screenshot) with its media type; and
// Annotation is out-of-band guidance rendered separately from Output.
type ToolOutcome struct {
	Output           string
	Error            string
	Annotation       string
	Payload          []byte
	PayloadMediaType string
}

// IsEmpty reports whether the outcome carries nothing at all.
func (o *ToolOutcome) IsEmpty() bool {
	return o.Output == "" && o.Error == "" && o.Annotation == "" && len(o.Payload) == 0
}

// Merge combines two outcomes into a new one. Text fields concatenate;
// at most one side may carry a payload.
func (o *ToolOutcome) Merge(other *ToolOutcome) (*ToolOutcome, error) {
	if other == nil {
		out := *o
		return &out, nil
	}
	if len(o.Payload) > 0 && len(other.Payload) > 0 {
		return nil, ErrConflictingPayloads
	}

	merged := &ToolOutcome{
		Output:           o.Output + other.Output,
		Annotation:       joinNonEmpty(o.Annotation, other.Annotation),
		Error:            joinNonEmpty(o.Error, other.Error),
		Payload:          o.Payload,
		PayloadMediaType: o.PayloadMediaType,
	}
	if len(other.Payload) > 0 {
		merged.Payload = other.Payload
		merged.PayloadMediaType = other.PayloadMediaType
	}
	return merged, nil
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
