// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package engine is the top-level entry point gluing the resolver, probe
// kernels, and scheduler together: one exported function per CLI
// subcommand, any of which a CLI, HTTP handler, or test can call directly.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/internal/discover"
	"github.com/xmppcheck/probe/probe"
	"github.com/xmppcheck/probe/result"
	"github.com/xmppcheck/probe/scheduler"
)

// Config holds the inputs common to every subcommand.
type Config struct {
	// Side selects client-side vs server-side SRV families. Defaults to
	// result.SideClient.
	Side result.Proto

	// IPv4/IPv6 select which address families the resolver requests.
	// Requesting neither is a usage error.
	IPv4, IPv6 bool

	// IncludeDirectTLS additionally resolves the xmpps-* SRV family.
	IncludeDirectTLS bool

	// Nameserver is the "host:port" of the DNS server to query. Empty uses
	// the system resolver (see discover.NewSystemResolver).
	Nameserver string

	// Logger receives span start/done events from the resolver and every
	// probe kernel. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (c Config) resolver() *discover.Resolver {
	var r *discover.Resolver
	if c.Nameserver == "" {
		r = discover.NewSystemResolver()
	} else {
		r = discover.NewResolver(c.Nameserver)
	}
	r.Logger = c.logger()
	return r
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c Config) filter() scheduler.Filter {
	side := c.Side
	if side == "" {
		side = result.SideClient
	}
	return scheduler.Filter{
		Side:             side,
		IPv4:             c.IPv4,
		IPv6:             c.IPv6,
		IncludeDirectTLS: c.IncludeDirectTLS,
	}
}

// DNS resolves domain and returns every discovered endpoint as a synthetic
// ProbeResult with Success always true (a resolved endpoint is itself the
// fact being reported), plus any diagnostic tags. It does not dial anything.
func DNS(ctx context.Context, cfg Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error) {
	sink := diagtag.New()
	resolver := cfg.resolver()
	endpoints, err := resolver.Enumerate(ctx, domain, cfg.Side, cfg.IPv4, cfg.IPv6, cfg.IncludeDirectTLS, sink)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: DNS: %w", err)
	}
	var results []result.ProbeResult
	for ep := range endpoints {
		results = append(results, result.ProbeResult{Endpoint: ep, Success: true})
	}
	return results, sink.Drain(), nil
}

// Socket runs the socket probe kernel over every endpoint discovered for
// domain.
func Socket(ctx context.Context, cfg Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error) {
	return run(ctx, cfg, domain, probe.KindSocket)
}

// Basic runs the basic-XMPP probe kernel.
func Basic(ctx context.Context, cfg Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error) {
	return run(ctx, cfg, domain, probe.KindBasic)
}

// TLSVersion runs the TLS-version probe kernel.
func TLSVersion(ctx context.Context, cfg Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error) {
	return run(ctx, cfg, domain, probe.KindTLSVersion)
}

// TLSCipher runs the TLS-cipher probe kernel.
func TLSCipher(ctx context.Context, cfg Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error) {
	return run(ctx, cfg, domain, probe.KindTLSCipher)
}

func run(ctx context.Context, cfg Config, domain string, kind probe.Kind) ([]result.ProbeResult, []diagtag.Tag, error) {
	results, tags, err := scheduler.Run(ctx, cfg.logger(), cfg.resolver(), domain, cfg.filter(), kind)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %s: %w", kind, err)
	}
	return results, tags, nil
}
