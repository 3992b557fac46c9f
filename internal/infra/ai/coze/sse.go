package coze

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

const dataPrefix = "data:"

// frame is the decoded payload of a data: line. Keys match exactly, so
// {"TYPE": ...} is not an answer frame.
type frame struct {
	Type   string
	Answer string
}

// decodeFrame returns the decoded payload of a data: line. Lines that are not
// data frames or that carry malformed JSON yield ok=false.
func decodeFrame(line string) (frame, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return frame{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return frame{}, false
	}

	var f frame
	_ = json.Unmarshal(fields["type"], &f.Type)
	var content map[string]json.RawMessage
	if err := json.Unmarshal(fields["content"], &content); err == nil {
		f.Answer = answerText(content["answer"])
	}
	return f, true
}

// answerText renders a string, number or true answer as text; anything else
// (null, false, zero, objects) contributes nothing.
func answerText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == 0 {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil && b {
		return "true"
	}
	return ""
}

// ExtractAnswer concatenates the content.answer text of every "answer" frame
// in raw, in line order. It returns geo.ErrEmptyResponse when nothing was found.
func ExtractAnswer(raw string) (string, error) {
	var sb strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, ok := decodeFrame(line)
		if !ok || f.Type != "answer" || f.Answer == "" {
			continue
		}
		sb.WriteString(f.Answer)
	}
	if sb.Len() == 0 {
		return "", geo.ErrEmptyResponse
	}
	return sb.String(), nil
}
