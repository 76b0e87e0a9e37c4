package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dockout/infrastructure/upstream"
)

// LoadingSequenceItem is one line of a picking confirmation.
type LoadingSequenceItem struct {
	Tokenno    string `json:"tokenno"`
	ObdNo      string `json:"obd_no"`
	Posnr      string `json:"posnr"`
	Matnr      string `json:"matnr"`
	Charg      string `json:"charg"`
	Sequenceno string `json:"sequenceno"`
	Maktx      string `json:"maktx"`
	Pstyv      string `json:"pstyv"`
	SpeLoekz   bool   `json:"speLoekz"`
	Werks      string `json:"werks"`
	Lgort      string `json:"lgort"`
	Lgnum      string `json:"lgnum"`
	Lgtyp      string `json:"lgtyp"`
	Docknum    string `json:"docknum"`
	Lgpla      string `json:"lgpla"`
	Lfimg      string `json:"lfimg"`
	Meins      string `json:"meins"`
	Bolnr      string `json:"bolnr"`
	Tanum      string `json:"tanum"`
	Oldcharg   string `json:"oldcharg"`
	Vtweg      string `json:"vtweg"`
	Uecha      string `json:"uecha"`
}

// PickingRequest is the deep-insert body for TokenDetailsSet.
type PickingRequest struct {
	Tokenno            string          `json:"tokenno"`
	Getloadingsequence LoadingSequence `json:"getloadingsequence"`
}

type LoadingSequence struct {
	Results []LoadingSequenceItem `json:"results"`
}

// PickingResponse is the leniently decoded picking reply. Doc is never nil;
// an unparseable body is carried under upstream.RawKey.
type PickingResponse struct {
	HTTPStatus int
	Body       string
	Doc        map[string]any
}

// RescodePaths are tried in order to find the picking result code.
var RescodePaths = []upstream.FieldPath{
	{"rescode"},
	{"d", "rescode"},
}

// MessagePaths are tried in order to find the picking result message.
var MessagePaths = []upstream.FieldPath{
	{"message"},
	{"d", "message"},
	{"d", "Message"},
	{upstream.RawKey},
}

// PostPicking acquires a session with GET and posts the picking payload.
// Non-2xx replies are returned as a response, not an error, so callers can
// classify and display them; only session and transport failures error.
func (c *Client) PostPicking(ctx context.Context, payload PickingRequest) (*PickingResponse, error) {
	session, err := c.AcquireSession(ctx, c.cfg.PickingURL, http.MethodGet)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal picking payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.PickingURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.applySession(req, session)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post picking: %w", err)
	}
	defer resp.Body.Close()

	text, err := upstream.ReadText(resp)
	if err != nil {
		return nil, fmt.Errorf("read picking response: %w", err)
	}
	return &PickingResponse{
		HTTPStatus: resp.StatusCode,
		Body:       text,
		Doc:        upstream.DecodeLenient(text),
	}, nil
}
