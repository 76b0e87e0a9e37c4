package upstream

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// RawKey holds the undecodable body text in documents returned by DecodeLenient.
const RawKey = "__raw"

var xmlMessagePattern = regexp.MustCompile(`<message[^>]*>([^<]+)</message>`)

// ReadText drains the response body as text.
func ReadText(resp *http.Response) (string, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeLenient parses text as JSON. Empty text yields an empty object and
// unparseable text yields {"__raw": text}; it never fails.
func DecodeLenient(text string) map[string]any {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return map[string]any{RawKey: text}
	}
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{RawKey: text}
}

// ODataErrorMessage extracts the message from an OData error body, trying
// error.message.value, then error.message, then an XML <message> element.
func ODataErrorMessage(text string) (message, code string) {
	var doc struct {
		Error struct {
			Code    string          `json:"code"`
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		code = doc.Error.Code
		var wrapped struct {
			Value string `json:"value"`
		}
		if json.Unmarshal(doc.Error.Message, &wrapped) == nil && wrapped.Value != "" {
			return wrapped.Value, code
		}
		var plain string
		if json.Unmarshal(doc.Error.Message, &plain) == nil && plain != "" {
			return plain, code
		}
		return "", code
	}
	if m := xmlMessagePattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1]), ""
	}
	return "", ""
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
