// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import "testing"

func TestNormalizeDomainAcceptsBareDomain(t *testing.T) {
	got, err := normalizeDomain("example.org")
	if err != nil {
		t.Fatalf("normalizeDomain: %v", err)
	}
	if got != "example.org" {
		t.Errorf("normalizeDomain(example.org) = %q, want example.org", got)
	}
}

func TestNormalizeDomainRejectsFullJID(t *testing.T) {
	if _, err := normalizeDomain("user@example.org"); err == nil {
		t.Fatal("normalizeDomain(user@example.org) succeeded, want error")
	}
}
