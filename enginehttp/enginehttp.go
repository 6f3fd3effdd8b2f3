// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package enginehttp is a thin net/http adapter over package engine:
// POST /test/{subcommand}/ with body {domain, typ, ipv4, ipv6, xmpps}
// returns the same {data, tags} JSON shape the CLI's -f json renderer
// produces. It adds no invariants beyond calling the same engine functions
// the CLI uses.
package enginehttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/engine"
	"github.com/xmppcheck/probe/result"
)

// request is the body POST /test/{subcommand}/ expects.
type request struct {
	Domain string `json:"domain"`
	Typ    string `json:"typ"` // "client" or "server"; defaults to client
	IPv4   bool   `json:"ipv4"`
	IPv6   bool   `json:"ipv6"`
	XMPPS  bool   `json:"xmpps"`
}

// subcommand is one of engine's per-kernel entry points, matched by name to
// a URL path segment.
type subcommand func(ctx context.Context, cfg engine.Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error)

var subcommands = map[string]struct {
	run    subcommand
	kernel result.Kernel
}{
	"dns":         {engine.DNS, result.KernelSocket},
	"socket":      {engine.Socket, result.KernelSocket},
	"basic":       {engine.Basic, result.KernelBasic},
	"tls_version": {engine.TLSVersion, result.KernelTLSVersion},
	"tls_cipher":  {engine.TLSCipher, result.KernelTLSCipher},
}

// Handler serves POST /test/{subcommand}/ for subcommand in
// {dns, socket, basic, tls_version, tls_cipher}. Logger defaults to a
// discarding logger if nil, matching engine.Config's own default.
type Handler struct {
	Logger *slog.Logger
}

// ServeHTTP implements http.Handler.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/test/"), "/")
	sub, ok := subcommands[name]
	if !ok {
		http.Error(w, "unknown subcommand: "+name, http.StatusNotFound)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}

	side := result.SideClient
	if req.Typ == "server" {
		side = result.SideServer
	}
	cfg := engine.Config{
		Side:             side,
		IPv4:             req.IPv4,
		IPv6:             req.IPv6,
		IncludeDirectTLS: req.XMPPS,
		Logger:           h.Logger,
	}

	results, tags, err := sub.run(r.Context(), cfg, req.Domain)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc := result.ToJSON(sub.kernel, results, tags)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}
