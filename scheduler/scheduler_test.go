// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/xmppcheck/probe/internal/discover"
	"github.com/xmppcheck/probe/probe"
)

type fakeDNS struct {
	answers map[string][]dns.RR
}

func newFakeResolver(t *testing.T) (*fakeDNS, *discover.Resolver) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	fd := &fakeDNS{answers: map[string][]dns.RR{}}
	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if len(req.Question) == 1 {
			if rrs, ok := fd.answers[req.Question[0].Name]; ok {
				m.Answer = rrs
			}
		}
		w.WriteMsg(m)
	})
	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	r := discover.NewResolver(pc.LocalAddr().String())
	r.Client = &dns.Client{Timeout: 2 * time.Second}
	return fd, r
}

func (fd *fakeDNS) set(owner string, rr []dns.RR) {
	fd.answers[dns.Fqdn(owner)] = rr
}

func TestRunSocketKernelEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	var port uint16
	fmt.Sscanf(portStr, "%d", &port)

	fd, resolver := newFakeResolver(t)
	fd.set("_xmpp-client._tcp.example.org", []dns.RR{
		&dns.SRV{
			Hdr:      dns.RR_Header{Name: dns.Fqdn("_xmpp-client._tcp.example.org"), Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: 300},
			Priority: 0, Weight: 0, Port: port, Target: dns.Fqdn("xmpp1.example.org"),
		},
	})
	fd.set("xmpp1.example.org", []dns.RR{
		&dns.A{Hdr: dns.RR_Header{Name: dns.Fqdn("xmpp1.example.org"), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60}, A: net.ParseIP("127.0.0.1")},
	})

	results, tags, err := Run(context.Background(), nil, resolver, "example.org", Filter{
		Side: discover.SideClient, IPv4: true,
	}, probe.KindSocket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if !results[0].Success {
		t.Error("results[0].Success = false, want true")
	}
	if len(tags) != 0 {
		t.Errorf("unexpected tags: %v", tags)
	}
}

func TestRunNoSRVProducesTagsNoResults(t *testing.T) {
	_, resolver := newFakeResolver(t)

	results, tags, err := Run(context.Background(), nil, resolver, "example.org", Filter{
		Side: discover.SideClient, IPv4: true, IPv6: true,
	}, probe.KindSocket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
	if len(tags) == 0 {
		t.Fatal("expected at least one diagnostic tag for missing SRV")
	}
}

func TestRunRejectsNoAddressFamily(t *testing.T) {
	_, resolver := newFakeResolver(t)
	_, _, err := Run(context.Background(), nil, resolver, "example.org", Filter{Side: discover.SideClient}, probe.KindSocket)
	if err != discover.ErrNoAddressFamily {
		t.Fatalf("err = %v, want ErrNoAddressFamily", err)
	}
}
