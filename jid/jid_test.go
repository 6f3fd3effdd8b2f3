// Copyright 2015 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package jid

import "testing"

func TestCommonChecksRejectsOversizedLocalpart(t *testing.T) {
	lp := make([]byte, 1024)
	for i := range lp {
		lp[i] = 'a'
	}
	if _, err := UnsafeFromParts(string(lp), "example.net", ""); err == nil {
		t.Error("expected error for a 1024-byte localpart")
	}
}

func TestCommonChecksRejectsOversizedResourcepart(t *testing.T) {
	rp := make([]byte, 1024)
	for i := range rp {
		rp[i] = 'a'
	}
	if _, err := UnsafeFromParts("e", "example.net", string(rp)); err == nil {
		t.Error("expected error for a 1024-byte resourcepart")
	}
}

func TestCommonChecksRejectsForbiddenLocalpartChars(t *testing.T) {
	for _, lp := range []string{`b"d`, "b&d", "b'd", "b/d", "b:d", "b<d", "b>d", "b@d"} {
		if _, err := UnsafeFromParts(lp, "example.net", ""); err == nil {
			t.Errorf("UnsafeFromParts(%q, ...) succeeded, want an error", lp)
		}
	}
}

func TestCommonChecksRejectsEmptyDomainpart(t *testing.T) {
	if _, err := UnsafeFromParts("", "", ""); err == nil {
		t.Error("expected error for an empty domainpart")
	}
}

func TestCheckIP6StringAcceptsValidLiteral(t *testing.T) {
	if _, err := UnsafeFromParts("", "[::1]", ""); err != nil {
		t.Errorf("UnsafeFromParts with [::1] domainpart failed: %v", err)
	}
}

func TestCheckIP6StringRejectsIPv4InBrackets(t *testing.T) {
	if _, err := UnsafeFromParts("", "[127.0.0.1]", ""); err == nil {
		t.Error("expected error for an IPv4 literal wrapped in brackets")
	}
}

func TestCheckIP6StringRejectsGarbageInBrackets(t *testing.T) {
	if _, err := UnsafeFromParts("", "[not-an-ip]", ""); err == nil {
		t.Error("expected error for a non-IP literal wrapped in brackets")
	}
}
