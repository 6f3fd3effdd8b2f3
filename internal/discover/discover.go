// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package discover expands a domain into an ordered, lazily streamed
// sequence of [result.Endpoint] values by resolving SRV records for the
// relevant XMPP service names and then the A/AAAA records of each SRV
// target.
//
// A resolver built on the stdlib net.Resolver cannot report a record's TTL,
// and [result.SRVRecord] needs one, so this implementation talks to a
// nameserver directly via github.com/miekg/dns. Each SRV target's address
// lookups run concurrently, but the whole thing is restructured as a
// single ordered producer channel rather than a fan-out/fan-in with a
// WaitGroup, so a caller can start consuming results before enumeration
// finishes.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/miekg/dns"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/result"
)

// ErrNoServiceAtAddress is returned when an SRV lookup resolves to a single
// record with Target ".", which per RFC 6230 §3.2.1 means the service is
// decidedly not available at this domain.
var ErrNoServiceAtAddress = errors.New("discover: no service available at this address")

// ErrNoAddressFamily is the usage error returned when a caller asks for
// neither IPv4 nor IPv6 addresses.
var ErrNoAddressFamily = errors.New("discover: at least one of ipv4 or ipv6 must be requested")

// Side selects which family of SRV services to resolve.
type Side = result.Proto

// The two sides, re-exported from package result for callers that only
// need this package.
const (
	SideClient = result.SideClient
	SideServer = result.SideServer
)

// Resolver resolves SRV/A/AAAA records against a single upstream
// nameserver.
//
// The zero value is not usable; construct with [NewResolver] or
// [NewSystemResolver].
type Resolver struct {
	// Nameserver is the "host:port" address of the DNS server to query.
	Nameserver string

	// Client performs the DNS exchanges. Configurable for tests.
	Client *dns.Client

	// Logger receives structured span events. Defaults to a discarding
	// logger if nil.
	Logger *slog.Logger
}

// NewResolver returns a [Resolver] that queries the given nameserver
// address directly (e.g. "127.0.0.1:53").
func NewResolver(nameserver string) *Resolver {
	return &Resolver{
		Nameserver: nameserver,
		Client:     new(dns.Client),
	}
}

// NewSystemResolver returns a [Resolver] configured from /etc/resolv.conf,
// falling back to the public resolver 8.8.8.8 if the file cannot be read.
func NewSystemResolver() *Resolver {
	const fallback = "8.8.8.8:53"
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return NewResolver(fallback)
	}
	return NewResolver(net.JoinHostPort(cfg.Servers[0], cfg.Port))
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return r.Logger
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// services returns the SRV service names to resolve for the given side.
// The server side resolves "xmpps-client" rather than "xmpps-server" for
// its direct-TLS family; see DESIGN.md for why this is kept rather than
// "fixed".
func services(side Side, includeDirectTLS bool) []result.Service {
	switch side {
	case SideServer:
		svcs := []result.Service{result.ServiceXMPPServer}
		if includeDirectTLS {
			svcs = append(svcs, result.ServiceXMPPSClient)
		}
		return svcs
	default:
		svcs := []result.Service{result.ServiceXMPPClient}
		if includeDirectTLS {
			svcs = append(svcs, result.ServiceXMPPSClient)
		}
		return svcs
	}
}

// Enumerate resolves domain into a lazily streamed sequence of endpoints.
// The returned channel is closed once every selected SRV service (and
// every resolved target's address records) has been processed. Tags
// describing partial DNS failures are emitted to sink as they are
// discovered; the caller is responsible for draining sink.
//
// Calling Enumerate with both ipv4 and ipv6 false is a usage error and
// returns immediately without issuing any DNS query.
func (r *Resolver) Enumerate(
	ctx context.Context,
	domain string,
	side Side,
	ipv4, ipv6, includeDirectTLS bool,
	sink *diagtag.Sink,
) (<-chan result.Endpoint, error) {
	if !ipv4 && !ipv6 {
		return nil, ErrNoAddressFamily
	}

	out := make(chan result.Endpoint)
	go func() {
		defer close(out)
		log := r.logger().With("domain", domain, "side", side)
		log.Debug("dns enumeration started")
		for _, svc := range services(side, includeDirectTLS) {
			r.enumerateService(ctx, domain, svc, ipv4, ipv6, sink, out)
		}
		log.Debug("dns enumeration finished")
	}()
	return out, nil
}

func (r *Resolver) enumerateService(
	ctx context.Context,
	domain string,
	svc result.Service,
	ipv4, ipv6 bool,
	sink *diagtag.Sink,
	out chan<- result.Endpoint,
) {
	owner := fmt.Sprintf("_%s._tcp.%s", svc, domain)
	answers, err := r.lookupSRV(ctx, owner)
	if err != nil || len(answers) == 0 {
		msg := fmt.Sprintf("SRV lookup for %s failed or returned no records", owner)
		if err != nil {
			msg = fmt.Sprintf("SRV lookup for %s failed: %v", owner, err)
		}
		sink.Emit(diagtag.Error, diagtag.IDSRVMissing, msg, "dns")
		return
	}

	type addrOutcome struct {
		ips []net.IP
		err error
	}
	perAnswer := make([]chan addrOutcome, len(answers))
	for i := range perAnswer {
		perAnswer[i] = make(chan addrOutcome, 1)
	}
	for i, ans := range answers {
		go func(i int, ans *dns.SRV) {
			ips, err := r.lookupAddrs(ctx, ans.Target, ipv4, ipv6)
			perAnswer[i] <- addrOutcome{ips: ips, err: err}
		}(i, ans)
	}

	for i, ans := range answers {
		res := <-perAnswer[i]
		rec := result.SRVRecord{
			Service:  svc,
			Proto:    "tcp",
			Domain:   domain,
			TTL:      ans.Hdr.Ttl,
			Priority: ans.Priority,
			Weight:   ans.Weight,
			Port:     ans.Port,
			Target:   dnsTrimRoot(ans.Target),
		}

		if res.err != nil || len(res.ips) == 0 {
			sink.Emit(diagtag.Error, diagtag.IDNoAddrRecords,
				fmt.Sprintf("%s has neither A nor AAAA records", rec.Target), "dns")
			continue
		}
		gotV4, gotV6 := false, false
		for _, ip := range res.ips {
			if ip.To4() != nil {
				gotV4 = true
			} else {
				gotV6 = true
			}
		}
		if ipv4 && !gotV4 {
			sink.Emit(diagtag.Warning, diagtag.IDNoARecords,
				fmt.Sprintf("%s has no A records", rec.Target), "dns")
		}
		if ipv6 && !gotV6 {
			sink.Emit(diagtag.Warning, diagtag.IDNoAAAARecords,
				fmt.Sprintf("%s has no AAAA records", rec.Target), "dns")
		}

		for _, ip := range res.ips {
			select {
			case out <- result.Endpoint{SRV: rec, IP: ip.String()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Resolver) lookupSRV(ctx context.Context, owner string) ([]*dns.SRV, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(owner), dns.TypeSRV)
	resp, _, err := r.Client.ExchangeContext(ctx, m, r.Nameserver)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("discover: SRV lookup for %s: %s", owner, dns.RcodeToString[resp.Rcode])
	}

	var out []*dns.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			out = append(out, srv)
		}
	}

	// RFC 6230 §3.2.1: a single record with Target "." means the service is
	// decidedly not available at this domain.
	if len(out) == 1 && out[0].Target == "." {
		return nil, ErrNoServiceAtAddress
	}
	return out, nil
}

func (r *Resolver) lookupAddrs(ctx context.Context, target string, ipv4, ipv6 bool) ([]net.IP, error) {
	type lookupOutcome struct {
		ips []net.IP
		err error
	}
	var v4, v6 lookupOutcome
	done := make(chan struct{}, 2)
	n := 0

	if ipv4 {
		n++
		go func() {
			v4.ips, v4.err = r.lookupType(ctx, target, dns.TypeA)
			done <- struct{}{}
		}()
	}
	if ipv6 {
		n++
		go func() {
			v6.ips, v6.err = r.lookupType(ctx, target, dns.TypeAAAA)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	var ips []net.IP
	ips = append(ips, v4.ips...)
	ips = append(ips, v6.ips...)
	if len(ips) == 0 {
		if v4.err != nil {
			return nil, v4.err
		}
		return nil, v6.err
	}
	return ips, nil
}

func (r *Resolver) lookupType(ctx context.Context, target string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(target), qtype)
	resp, _, err := r.Client.ExchangeContext(ctx, m, r.Nameserver)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("discover: lookup for %s: %s", target, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		switch v := rr.(type) {
		case *dns.A:
			ips = append(ips, v.A)
		case *dns.AAAA:
			ips = append(ips, v.AAAA)
		}
	}
	return ips, nil
}

func dnsTrimRoot(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}
	return name
}
