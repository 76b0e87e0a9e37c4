package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dockout/infrastructure/upstream"
)

// TokenLine is one loading-sequence line of a VEP token.
type TokenLine struct {
	ObdNo      string `json:"obd_no"`
	LVSTK      string `json:"LVSTK"`
	KOSTK      string `json:"KOSTK"`
	WBSTK      string `json:"WBSTK"`
	Posnr      string `json:"posnr"`
	Matnr      string `json:"matnr"`
	Maktx      string `json:"maktx"`
	Lfimg      string `json:"lfimg"`
	Charg      string `json:"charg"`
	Oldcharg   string `json:"oldcharg"`
	Meins      string `json:"meins"`
	Lgpla      string `json:"lgpla"`
	Lgtyp      string `json:"lgtyp"`
	Lgnum      string `json:"lgnum"`
	Lgort      string `json:"lgort"`
	Werks      string `json:"werks"`
	Docknum    string `json:"docknum"`
	Pstyv      string `json:"pstyv"`
	Ntgew      string `json:"ntgew"`
	Brgew      string `json:"brgew"`
	Bolnr      string `json:"bolnr"`
	Tanum      string `json:"tanum"`
	Sequenceno string `json:"sequenceno"`
	Vtweg      string `json:"vtweg"`
	Uecha      string `json:"uecha"`
}

// TokenDetails is the expanded TokenDetailsSet entity.
type TokenDetails struct {
	TokenNo string
	Lines   []TokenLine
}

// FetchTokenDetails reads the loading sequence of a VEP token.
func (c *Client) FetchTokenDetails(ctx context.Context, token string) (*TokenDetails, error) {
	endpoint := fmt.Sprintf("%s(tokenno='%s')?$expand=getloadingsequence", c.cfg.PickingURL, odataLiteral(token))
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch token details: %w", err)
	}
	defer resp.Body.Close()

	text, err := upstream.ReadText(resp)
	if err != nil {
		return nil, fmt.Errorf("read token details: %w", err)
	}
	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, tokenLookupError(resp, text)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		if ct == "" {
			ct = "unknown content type"
		}
		return nil, &upstream.DomainError{
			Message: "SAP API returned non-JSON response",
			Body:    preview(text, 200),
			Err:     fmt.Errorf("expected JSON but received: %s", ct),
		}
	}

	var doc struct {
		D struct {
			TokenNo            string `json:"TokenNo"`
			Getloadingsequence struct {
				Results []TokenLine `json:"results"`
			} `json:"getloadingsequence"`
		} `json:"d"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &upstream.DomainError{
			Message: "Failed to parse SAP API response",
			Body:    preview(text, 200),
			Err:     &upstream.ParseError{Body: text, Err: err},
		}
	}
	tokenNo := doc.D.TokenNo
	if tokenNo == "" {
		tokenNo = token
	}
	return &TokenDetails{TokenNo: tokenNo, Lines: doc.D.Getloadingsequence.Results}, nil
}

// LoadedLine is one loaded line used for gross-weight reconciliation.
type LoadedLine struct {
	Tokenno string `json:"tokenno"`
	ObdNo   string `json:"obd_no"`
	Posnr   string `json:"posnr"`
	Lfimg   string `json:"lfimg"`
	Prqty   string `json:"prqty"`
	Matnr   string `json:"matnr"`
	Uecha   string `json:"uecha"`
	Charg   string `json:"charg"`
	Ntgew   string `json:"ntgew"`
	Brgew   string `json:"brgew"`
	Lgort   string `json:"lgort"`
	Werks   string `json:"werks"`
}

// FetchLoadedDetails reads LoadedDetailsSet filtered by VEP token.
func (c *Client) FetchLoadedDetails(ctx context.Context, token string) ([]LoadedLine, error) {
	filter := fmt.Sprintf("tokenno eq '%s'", strings.ReplaceAll(token, "'", "''"))
	endpoint := c.cfg.LoadedDetailsURL + "?$filter=" + strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch loaded details: %w", err)
	}
	defer resp.Body.Close()

	text, err := upstream.ReadText(resp)
	if err != nil {
		return nil, fmt.Errorf("read loaded details: %w", err)
	}
	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, &upstream.HTTPError{Status: resp.StatusCode, Message: "Failed to fetch SAP data.", Body: text}
	}

	var doc struct {
		D struct {
			Results []LoadedLine `json:"results"`
		} `json:"d"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &upstream.DomainError{
			Message: "Failed to parse SAP loaded details",
			Body:    preview(text, 200),
			Err:     &upstream.ParseError{Body: text, Err: err},
		}
	}
	return doc.D.Results, nil
}

func tokenLookupError(resp *http.Response, text string) error {
	e := &upstream.HTTPError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("SAP API Error: %s", resp.Status),
		Body:    text,
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(text), &envelope) == nil {
		if len(envelope.Error) > 0 {
			message, code := upstream.ODataErrorMessage(text)
			if code == "" {
				code = "Unknown"
			}
			e.Message = fmt.Sprintf("SAP Error (%s): %s", code, message)
		}
		return e
	}
	if strings.Contains(text, "Invalid") || strings.Contains(text, "Error") || strings.Contains(text, "Unauthorized") {
		e.Message = fmt.Sprintf("SAP API Error: %s...", preview(text, 200))
	}
	return e
}

// odataLiteral escapes a value for use inside a quoted OData key.
func odataLiteral(v string) string {
	return url.PathEscape(strings.ReplaceAll(v, "'", "''"))
}

func preview(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}
