// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package scheduler implements the concurrent test scheduler: it runs a
// probe kernel over the Cartesian product of resolved endpoints and
// per-kernel parameter sets, fully concurrently, and collects both the
// per-tuple results and the tags emitted along the way.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/internal/discover"
	"github.com/xmppcheck/probe/probe"
	"github.com/xmppcheck/probe/result"
)

// Filter selects which endpoints the DNS resolver yields.
type Filter struct {
	Side             discover.Side
	IPv4             bool
	IPv6             bool
	IncludeDirectTLS bool
}

// Run resolves domain through resolver per filter, then runs kind once per
// (endpoint, kernel-params) tuple produced by [probe.GetTests], fully
// concurrently. Results are returned in the deterministic order of
// (endpoint-enumeration-order, params-enumeration-order), regardless of
// completion order. Each probe is isolated: a probe's error is
// converted to ProbeResult.Success=false at the kernel boundary (see
// package probe) and never cancels its siblings.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	resolver *discover.Resolver,
	domain string,
	filter Filter,
	kind probe.Kind,
) ([]result.ProbeResult, []diagtag.Tag, error) {
	sink := diagtag.New()

	endpoints, err := resolver.Enumerate(ctx, domain, filter.Side, filter.IPv4, filter.IPv6, filter.IncludeDirectTLS, sink)
	if err != nil {
		return nil, nil, err
	}

	// jobs preserves (endpoint-order, params-order): endpoints arrive off
	// the resolver's ordered channel one at a time, and each endpoint's
	// parameter sets are appended in GetTests' order before the next
	// endpoint is read.
	type job struct {
		endpoint result.Endpoint
		params   probe.Params
	}
	var jobs []job
	for ep := range endpoints {
		for _, params := range probe.GetTests(kind, ep) {
			jobs = append(jobs, job{endpoint: ep, params: params})
		}
	}

	results := make([]result.ProbeResult, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, j := range jobs {
		go func(i int, j job) {
			defer wg.Done()
			results[i] = probe.Run(ctx, logger, j.endpoint, j.params)
		}(i, j)
	}
	wg.Wait()

	return results, sink.Drain(), nil
}
