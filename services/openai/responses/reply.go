package responses

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
)

// ReplyShape names the response layout a reply was found in.
type ReplyShape string

const (
	ShapeOutputText ReplyShape = "output_text" // top-level output_text helper
	ShapeOutputList ReplyShape = "output_list" // output[].content[].text
	ShapeChoices    ReplyShape = "choices"     // choices[0].message.content
	ShapeNone       ReplyShape = "none"
)

// replyEnvelope covers every layout a chat endpoint has been seen to answer
// with. Text fields stay raw because some variants send {"value": "..."}.
type replyEnvelope struct {
	OutputText json.RawMessage `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string          `json:"type"`
			Text json.RawMessage `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractReplyText decodes body and returns the reply from the first layout
// that carries non-blank text, in a fixed order: output_text, the output
// list, then choices. It returns "" and ShapeNone when none match.
func ExtractReplyText(body []byte) (string, ReplyShape, error) {
	var env replyEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return "", ShapeNone, err
	}

	if text := decodeText(env.OutputText); text != "" {
		return text, ShapeOutputText, nil
	}

	var sb strings.Builder
	for _, item := range env.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "" && part.Type != "output_text" && part.Type != "text" {
				continue
			}
			sb.WriteString(decodeText(part.Text))
		}
	}
	if text := strings.TrimSpace(sb.String()); text != "" {
		return text, ShapeOutputList, nil
	}

	if len(env.Choices) > 0 {
		if text := decodeText(env.Choices[0].Message.Content); text != "" {
			return text, ShapeChoices, nil
		}
	}
	return "", ShapeNone, nil
}

// decodeText accepts a JSON string, an object with a "value" or "text"
// string, or an array of such objects.
func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Value string `json:"value"`
		Text  string `json:"text"`
	}
	if err := sonic.Unmarshal(raw, &obj); err == nil {
		if obj.Value != "" {
			return strings.TrimSpace(obj.Value)
		}
		return strings.TrimSpace(obj.Text)
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := sonic.Unmarshal(raw, &parts); err == nil {
		var sb strings.Builder
		for _, p := range parts {
			sb.WriteString(p.Text)
		}
		return strings.TrimSpace(sb.String())
	}
	return ""
}
