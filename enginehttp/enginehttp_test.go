// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package enginehttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeHTTPRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test/dns/", nil)
	rec := httptest.NewRecorder()
	Handler{}.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServeHTTPUnknownSubcommand(t *testing.T) {
	body, _ := json.Marshal(request{Domain: "example.org", IPv4: true})
	req := httptest.NewRequest(http.MethodPost, "/test/bogus/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	Handler{}.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeHTTPRequiresDomain(t *testing.T) {
	body, _ := json.Marshal(request{IPv4: true})
	req := httptest.NewRequest(http.MethodPost, "/test/dns/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	Handler{}.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeHTTPRejectsNoAddressFamily(t *testing.T) {
	body, _ := json.Marshal(request{Domain: "example.org"})
	req := httptest.NewRequest(http.MethodPost, "/test/dns/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	Handler{}.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
