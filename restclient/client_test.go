package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRestClient(t *testing.T) {
	c := NewRestClient("http://test", map[string]string{"x": "y"}, nil)
	if c.baseURL != "http://test" {
		t.Fail()
	}
	if c.headers["x"] != "y" {
		t.Fail()
	}
	if c.httpClient == nil || c.httpClient.Timeout != defaultTimeout {
		t.Fail()
	}
}

type headerAuth struct {
	key, value string
}

func (a headerAuth) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set(a.key, a.value)
	return nil
}

type failingAuth struct{}

func (failingAuth) Apply(context.Context, *http.Request) error {
	return errors.New("no credentials")
}

func TestAuthenticatorApplied(t *testing.T) {
	var seen string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Auth")
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	rc := NewRestClient(ts.URL, nil, headerAuth{"X-Auth", "signed"})
	_, status, err := rc.Get(context.Background(), "/", nil)
	if err != nil || status != http.StatusOK || seen != "signed" {
		t.Fail()
	}
}

func TestAuthenticatorFailureAborts(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	rc := NewRestClient(ts.URL, nil, failingAuth{})
	_, _, err := rc.Get(context.Background(), "/", nil)
	if err == nil || called {
		t.Fail()
	}
}

func TestPostRawContentType(t *testing.T) {
	var contentType, body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		body = string(buf)
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	rc := NewRestClient(ts.URL, nil, nil)
	raw := []byte("{\"index\":{}}\n{\"vector\":[1]}\n")
	_, status, err := rc.PostRaw(context.Background(), "/_bulk", raw, "application/x-ndjson")
	if err != nil || status != http.StatusOK {
		t.Fail()
	}
	if contentType != "application/x-ndjson" || body != string(raw) {
		t.Fail()
	}
}

func TestRestClient(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer ts.Close()
	cases := []struct {
		name     string
		method   string
		baseURL  string
		endpoint string
		body     any
		expectOK bool
	}{
		{"get_ok", http.MethodGet, ts.URL, "/", nil, true},
		{"head_ok", http.MethodHead, ts.URL, "/", nil, true},
		{"post_ok", http.MethodPost, ts.URL, "/", map[string]string{"x": "y"}, true},
		{"put_ok", http.MethodPut, ts.URL, "/", map[string]string{"x": "y"}, true},
		{"delete_ok", http.MethodDelete, ts.URL, "/", nil, true},
		{"invalid_url", http.MethodGet, "://bad", "", nil, false},
		{"json_error", http.MethodPost, ts.URL, "/", func() {}, false},
		{"server_closed", http.MethodGet, "", "/", nil, false},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			var rc *RestClient
			if cse.name == "server_closed" {
				s := httptest.NewServer(nil)
				s.Close()
				rc = NewRestClient(s.URL, nil, nil)
			} else {
				rc = NewRestClient(cse.baseURL, nil, nil)
			}
			var s int
			var err error
			switch cse.method {
			case http.MethodGet:
				_, s, err = rc.Get(ctx, cse.endpoint, nil)
			case http.MethodHead:
				s, err = rc.Head(ctx, cse.endpoint)
			case http.MethodPost:
				_, s, err = rc.Post(ctx, cse.endpoint, cse.body, nil)
			case http.MethodPut:
				_, s, err = rc.Put(ctx, cse.endpoint, cse.body, nil)
			case http.MethodDelete:
				_, s, err = rc.Delete(ctx, cse.endpoint, nil)
			}
			if cse.expectOK && (err != nil || s != http.StatusOK) {
				t.Fail()
			}
			if !cse.expectOK && err == nil {
				t.Fail()
			}
		})
	}
}
