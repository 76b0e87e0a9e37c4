package teg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dockout/infrastructure/upstream"
)

// Config locates the TEG logistics API.
type Config struct {
	AuthURL                string `validate:"required,url"`
	UpdateURL              string `validate:"required,url"`
	AdditionalMaterialsURL string `validate:"required,url"`
	Username               string `validate:"required"`
	Password               string `validate:"required"`
}

// ErrNoToken is returned when an authentication reply carries no token in
// any known field.
var ErrNoToken = errors.New("no token received from TEG API")

// TokenPaths are tried in order against the authentication reply.
var TokenPaths = []upstream.FieldPath{
	{"token"},
	{"access_token"},
	{"authToken"},
	{"auth_token"},
	{"Token"},
	{"AccessToken"},
	{"AuthToken"},
	{"jwt"},
	{"JWT"},
	{"data", "token"},
	{"data", "access_token"},
	{"data", "authToken"},
	{"result", "token"},
	{"result", "access_token"},
	{"result", "authToken"},
}

// LoadingDetail is one loaded line reported to TEG.
type LoadingDetail struct {
	DoNumber        string `json:"doNumber"`
	Quantity        string `json:"quantity"`
	BatchNo         string `json:"batchNo"`
	BatchLineNo     string `json:"batchLineNo"`
	StorageLocation string `json:"storageLocation"`
	BatchQuantity   string `json:"batchQuantity"`
	LoadedQuantity  string `json:"loadedQuantity"`
	MaterialCode    string `json:"materialCode"`
	ActualWeight    string `json:"actualWeight"`
	LineItem        string `json:"lineItem"`
	ChargedWeight   string `json:"chargedWeight"`
}

// UpdateRequest is the picking-data update for one VEP token.
type UpdateRequest struct {
	Token              string          `json:"token"`
	IsLoadingCompleted bool            `json:"isLoadingCompleted"`
	LoadingDetails     []LoadingDetail `json:"loadingDetails"`
}

// AdditionalMaterial is packing material loaded alongside the goods.
type AdditionalMaterial struct {
	MaterialDescription string `json:"materialDescription"`
	ChargedWeight       string `json:"chargedWeight"`
	UOM                 string `json:"uom"`
}

type AdditionalMaterialsRequest struct {
	Token               string               `json:"token"`
	IsLoadingCompleted  bool                 `json:"isLoadingCompleted"`
	AdditionalMaterials []AdditionalMaterial `json:"additionalMaterials"`
}

// Client calls the TEG API. Each update call carries a token from Authenticate.
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

// Authenticate exchanges the configured credentials for an API token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	payload := map[string]string{"username": c.cfg.Username, "password": c.cfg.Password}
	status, text, err := c.post(ctx, c.cfg.AuthURL, "", payload)
	if err != nil {
		return "", fmt.Errorf("teg auth: %w", err)
	}
	if !upstream.IsSuccess(status) {
		return "", &upstream.HTTPError{Status: status, Message: "Failed to authenticate with TEG", Body: text}
	}
	token, ok := ExtractToken(text)
	if !ok {
		return "", &upstream.DomainError{Message: "No token received from TEG API", Body: text, Err: ErrNoToken}
	}
	return token, nil
}

// ExtractToken finds the token in an authentication reply. A bare JSON
// string longer than ten characters is taken as the token itself.
func ExtractToken(text string) (string, bool) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", false
	}
	if s, ok := doc.(string); ok {
		if len(s) > 10 {
			return s, true
		}
		return "", false
	}
	token, _, ok := upstream.FirstString(doc, TokenPaths)
	return token, ok
}

// UpdatePicking sends the loaded lines for a VEP token.
func (c *Client) UpdatePicking(ctx context.Context, token string, req UpdateRequest) error {
	status, text, err := c.post(ctx, c.cfg.UpdateURL, token, req)
	if err != nil {
		return fmt.Errorf("teg update: %w", err)
	}
	if !upstream.IsSuccess(status) {
		return &upstream.HTTPError{Status: status, Message: updateErrorMessage(text, "Failed to update TEG data"), Body: text}
	}
	return nil
}

// AddMaterials reports additional packing materials for a VEP token.
func (c *Client) AddMaterials(ctx context.Context, token string, req AdditionalMaterialsRequest) error {
	status, text, err := c.post(ctx, c.cfg.AdditionalMaterialsURL, token, req)
	if err != nil {
		return fmt.Errorf("teg additional materials: %w", err)
	}
	if !upstream.IsSuccess(status) {
		return &upstream.HTTPError{Status: status, Message: "Failed to save additional materials", Body: text}
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint, token string, payload any) (int, string, error) {
	if token == "" && endpoint != c.cfg.AuthURL {
		return 0, "", errors.New("authorization token is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	text, err := upstream.ReadText(resp)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, text, nil
}

// updateErrorMessage prefers error, then message, then the body text.
func updateErrorMessage(text, fallback string) string {
	doc := upstream.DecodeLenient(text)
	if _, raw := doc[upstream.RawKey]; raw {
		if s := strings.TrimSpace(text); s != "" {
			return s
		}
		return fallback
	}
	if msg, _, ok := upstream.FirstString(doc, []upstream.FieldPath{{"error"}, {"message"}}); ok {
		return msg
	}
	return fallback
}
