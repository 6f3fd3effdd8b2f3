// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package tlsprobe

import (
	"testing"

	"github.com/xmppcheck/probe/result"
)

func TestSupportedVersionsExcludesSSL(t *testing.T) {
	versions := SupportedVersions()
	for _, v := range versions {
		if v == result.SSLv2 || v == result.SSLv3 {
			t.Errorf("SupportedVersions() contains %v, which crypto/tls never implements", v)
		}
	}
	if len(versions) == 0 {
		t.Fatal("SupportedVersions() returned nothing")
	}
}

func TestSupportedVersionsNewestFirst(t *testing.T) {
	versions := SupportedVersions()
	for i := 1; i < len(versions); i++ {
		if versions[i] > versions[i-1] {
			t.Fatalf("SupportedVersions() not newest-first: %v", versions)
		}
	}
}

func TestSupportedVersionsExclude(t *testing.T) {
	versions := SupportedVersions(result.TLSv1_3)
	for _, v := range versions {
		if v == result.TLSv1_3 {
			t.Fatalf("SupportedVersions(TLSv1_3) still contains TLSv1_3: %v", versions)
		}
	}
}

func TestContextForRestrictsVersion(t *testing.T) {
	cfg, ok := ContextFor(result.TLSv1_2, "example.org")
	if !ok {
		t.Fatal("ContextFor(TLSv1_2) reported unsupported")
	}
	if cfg.MinVersion != cfg.MaxVersion {
		t.Fatalf("ContextFor should pin MinVersion == MaxVersion, got %d/%d", cfg.MinVersion, cfg.MaxVersion)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("ContextFor should disable certificate verification")
	}
}

func TestContextForUnsupportedVersion(t *testing.T) {
	if _, ok := ContextFor(result.SSLv3, "example.org"); ok {
		t.Error("ContextFor(SSLv3) should report unsupported")
	}
}

func TestCiphersForNonEmpty(t *testing.T) {
	ciphers := CiphersFor(result.TLSv1_2)
	if len(ciphers) == 0 {
		t.Fatal("CiphersFor(TLSv1_2) returned no ciphers")
	}
}

func TestProtocolCiphersDedup(t *testing.T) {
	pairs := ProtocolCiphers()
	seen := make(map[string]bool)
	for _, p := range pairs {
		if seen[p.Cipher] {
			t.Fatalf("cipher %q appears more than once in ProtocolCiphers()", p.Cipher)
		}
		seen[p.Cipher] = true
	}
}

func TestRestrictCipher(t *testing.T) {
	ciphers := CiphersFor(result.TLSv1_2)
	if len(ciphers) == 0 {
		t.Skip("no TLS 1.2 ciphers available on this platform")
	}
	cfg, _ := ContextFor(result.TLSv1_2, "example.org")
	if !RestrictCipher(cfg, ciphers[0]) {
		t.Fatalf("RestrictCipher(%q) failed", ciphers[0])
	}
	if len(cfg.CipherSuites) != 1 {
		t.Fatalf("cfg.CipherSuites = %v, want exactly one entry", cfg.CipherSuites)
	}
}
