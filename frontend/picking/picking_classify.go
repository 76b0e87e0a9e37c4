package picking

import (
	"fmt"
	"strings"

	"dockout/infrastructure/sap"
	"dockout/infrastructure/upstream"
	"dockout/models"
)

// SuccessPhrases mark a picking reply as picked when found in its message,
// case-insensitively. SAP reports a repeated confirmation as an error text
// rather than a result code.
var SuccessPhrases = []string{
	"DO already has an existing TO",
	"already has an existing to",
	"do already has",
	"success",
	"picked",
	"already exists",
}

// DefaultMessage stands in for the message of a 2xx JSON reply that
// carries none, such as a deep insert echoing only the entity.
const DefaultMessage = "Picking request sent successfully."

// Classify decides whether a picking reply confirmed the delivery order.
// A non-2xx reply is an error whatever its body says.
func Classify(resp *sap.PickingResponse) Result {
	res := Result{Status: models.StatusError, HTTPStatus: resp.HTTPStatus, Body: resp.Body, Doc: resp.Doc}
	rescode, _, _ := upstream.FirstString(resp.Doc, sap.RescodePaths)
	res.Rescode = strings.TrimSpace(rescode)
	messageRaw, _, _ := upstream.FirstString(resp.Doc, sap.MessagePaths)
	if messageRaw == "" && upstream.IsSuccess(resp.HTTPStatus) && parsedJSON(resp.Doc) {
		messageRaw = DefaultMessage
	}
	res.Message = messageRaw
	if res.Message == "" {
		res.Message = fmt.Sprintf("Response status %d", resp.HTTPStatus)
	}

	if !upstream.IsSuccess(resp.HTTPStatus) {
		return res
	}
	switch strings.ToLower(res.Rescode) {
	case "s", "c":
		res.Status = models.StatusPicked
		return res
	}
	message := strings.ToLower(strings.TrimSpace(messageRaw))
	for _, phrase := range SuccessPhrases {
		if strings.Contains(message, strings.ToLower(phrase)) {
			res.Status = models.StatusPicked
			break
		}
	}
	return res
}

func parsedJSON(doc map[string]any) bool {
	if len(doc) == 0 {
		return false
	}
	_, raw := doc[upstream.RawKey]
	return !raw
}
