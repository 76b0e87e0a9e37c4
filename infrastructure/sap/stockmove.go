package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dockout/infrastructure/upstream"
)

// StockMoveItem is one line of a stock-movement posting.
type StockMoveItem struct {
	Posnr       string `json:"Posnr"`
	Matnr       string `json:"Matnr"`
	Batch       string `json:"Batch"`
	Quantity    string `json:"Quantity"`
	Uom         string `json:"Uom"`
	StorageType string `json:"StorageType"`
	Storage     string `json:"Storage"`
	ToStorage   string `json:"ToStorage"`
	VepToken    string `json:"VepToken"`
	DocCata     string `json:"DocCata"`
	UECHA       string `json:"UECHA"`
}

// StockMoveRequest is the deep-insert body for StockHeadSet.
type StockMoveRequest struct {
	Dono        string          `json:"Dono"`
	OrderToItem []StockMoveItem `json:"OrderToItem"`
}

// StockMoveResultItem echoes a posted line with the gateway's outcome.
type StockMoveResultItem struct {
	Posnr       string `json:"Posnr"`
	Matnr       string `json:"Matnr"`
	Batch       string `json:"Batch"`
	OldBatch    string `json:"OldBatch"`
	Quantity    string `json:"Quantity"`
	Uom         string `json:"Uom"`
	StorageType string `json:"StorageType"`
	Storage     string `json:"Storage"`
	ToStorage   string `json:"ToStorage"`
	Warehouse   string `json:"Warehouse"`
	Bin         string `json:"Bin"`
	VepToken    string `json:"VepToken"`
	DocCata     string `json:"DocCata"`
	UECHA       string `json:"UECHA"`
	Sequenceno  string `json:"Sequenceno"`
	Message     string `json:"Message"`
}

// StockMoveResponse is the OData v2 envelope returned by a posting.
type StockMoveResponse struct {
	D struct {
		Dono        string `json:"Dono"`
		OrderToItem struct {
			Results []StockMoveResultItem `json:"results"`
		} `json:"OrderToItem"`
	} `json:"d"`

	Raw string `json:"-"`
}

// Results returns the per-item results.
func (r *StockMoveResponse) Results() []StockMoveResultItem {
	if r == nil {
		return nil
	}
	return r.D.OrderToItem.Results
}

// Message is the domain message of the first result item.
func (r *StockMoveResponse) Message() string {
	results := r.Results()
	if len(results) == 0 {
		return ""
	}
	return results[0].Message
}

// PostStockMove acquires a session with HEAD and posts the movement.
func (c *Client) PostStockMove(ctx context.Context, payload StockMoveRequest) (*StockMoveResponse, error) {
	session, err := c.AcquireSession(ctx, c.cfg.StockMoveURL, http.MethodHead)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stock move payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.StockMoveURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.applySession(req, session)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post stock move: %w", err)
	}
	defer resp.Body.Close()

	text, err := upstream.ReadText(resp)
	if err != nil {
		return nil, fmt.Errorf("read stock move response: %w", err)
	}

	if !upstream.IsSuccess(resp.StatusCode) {
		message, _ := upstream.ODataErrorMessage(text)
		if message == "" {
			message = fmt.Sprintf("SAP stock transfer failed with HTTP status: %d", resp.StatusCode)
		}
		return nil, &upstream.HTTPError{Status: resp.StatusCode, Message: message, Body: text}
	}

	var out StockMoveResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &upstream.DomainError{
			Message: "Failed to parse response JSON",
			Body:    text,
			Err:     &upstream.ParseError{Body: text, Err: err},
		}
	}
	out.Raw = text
	return &out, nil
}
