package sap

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config locates the OData services used by the dock-out workflow.
type Config struct {
	StockMoveURL     string `validate:"required,url"`
	PickingURL       string `validate:"required,url"`
	LoadedDetailsURL string `validate:"required,url"`
	Username         string `validate:"required"`
	Password         string `validate:"required"`
	Client           string
}

// Client talks to the SAP OData gateway with HTTP Basic credentials.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client. A nil httpClient gets one bounded by timeout.
func NewClient(cfg Config, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.cfg.Username+":"+c.cfg.Password))
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("Authorization", c.basicAuth())
	req.Header.Set("Accept", "application/json")
	if c.cfg.Client != "" {
		req.Header.Set("sap-client", c.cfg.Client)
	}
	return req, nil
}
