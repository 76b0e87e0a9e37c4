package teg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dockout/infrastructure/upstream"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"top level", `{"token":"abc"}`, "abc", true},
		{"access token before nested", `{"access_token":"top","data":{"token":"nested"}}`, "top", true},
		{"upper case", `{"AccessToken":"xyz"}`, "xyz", true},
		{"nested data", `{"data":{"authToken":"d1"}}`, "d1", true},
		{"nested result", `{"result":{"access_token":"r1"}}`, "r1", true},
		{"empty top falls through", `{"token":"","jwt":"j1"}`, "j1", true},
		{"bare string", `"eyJhbGciOiJIUzI1NiJ9"`, "eyJhbGciOiJIUzI1NiJ9", true},
		{"short bare string", `"short"`, "", false},
		{"nothing", `{"status":"ok"}`, "", false},
		{"not json", `token=abc`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractToken(tc.body)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		AuthURL:                srv.URL + "/auth",
		UpdateURL:              srv.URL + "/update",
		AdditionalMaterialsURL: srv.URL + "/materials",
		Username:               "operator",
		Password:               "pw",
	}, nil, 5*time.Second)
}

func TestAuthenticate(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "operator" || creds["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"token":"tg-1"}}`))
	})

	token, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token != "tg-1" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestAuthenticate_NoToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	_, err := c.Authenticate(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestUpdatePicking_SendsTokenHeader(t *testing.T) {
	var gotToken string
	var got UpdateRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("token")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.UpdatePicking(context.Background(), "tg-1", UpdateRequest{
		Token:              "VEP1",
		IsLoadingCompleted: true,
		LoadingDetails:     []LoadingDetail{{DoNumber: "80001", LineItem: "000010"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotToken != "tg-1" || got.Token != "VEP1" || !got.IsLoadingCompleted || got.LoadingDetails[0].LineItem != "000010" {
		t.Fatalf("unexpected request: token=%q body=%+v", gotToken, got)
	}
}

func TestUpdatePicking_ErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"indent closed"}`, "indent closed"},
		{"message field", `{"message":"bad token"}`, "bad token"},
		{"plain text", `gateway down`, "gateway down"},
		{"empty", ``, "Failed to update TEG data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			})
			err := c.UpdatePicking(context.Background(), "tg", UpdateRequest{Token: "V"})
			var he *upstream.HTTPError
			if !errors.As(err, &he) || he.Message != tc.want || he.Status != http.StatusBadRequest {
				t.Fatalf("got %v, want %q", err, tc.want)
			}
		})
	}
}

func TestAddMaterials_RequiresToken(t *testing.T) {
	called := false
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	if err := c.AddMaterials(context.Background(), "", AdditionalMaterialsRequest{Token: "V"}); err == nil {
		t.Fatalf("expected error without token")
	}
	if called {
		t.Fatalf("request must not be sent without a token")
	}
}
