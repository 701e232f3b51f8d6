package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"

	"github.com/kbinani/screenshot"
)

// ScreenshotTool captures a display and returns the PNG bytes as a binary
// payload. The runner turns the payload into an image block inside the
// tool result, which is what the image-retention policy later evicts.
type ScreenshotTool struct{}

type screenshotInput struct {
	Display int `json:"display"` // 0 = primary
}

// NewScreenshotTool creates the screenshot tool.
func NewScreenshotTool() *ScreenshotTool {
	return &ScreenshotTool{}
}

func (t *ScreenshotTool) Name() string { return "screenshot" }

func (t *ScreenshotTool) Description() string {
	return `Capture a screenshot of a display and return it as an image.

- display: display index (0 = primary, default)`
}

func (t *ScreenshotTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"display": {"type": "integer", "description": "Display index, 0 is the primary display"}
		}
	}`)
}

func (t *ScreenshotTool) Invoke(_ context.Context, input json.RawMessage) (*ToolOutcome, error) {
	var in screenshotInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid screenshot input: %w", err)
		}
	}

	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	if in.Display < 0 || in.Display >= n {
		return nil, fmt.Errorf("display %d out of range (have %d)", in.Display, n)
	}

	img, err := screenshot.CaptureDisplay(in.Display)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}

	bounds := img.Bounds()
	return &ToolOutcome{
		Annotation:       fmt.Sprintf("screenshot of display %d (%dx%d)", in.Display, bounds.Dx(), bounds.Dy()),
		Payload:          buf.Bytes(),
		PayloadMediaType: "image/png",
	}, nil
}
