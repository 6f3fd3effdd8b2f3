// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package tlsprobe is a TLS context factory: it reports which TLS versions
// the host platform can negotiate, builds [*tls.Config] values restricted
// to exactly one version (and optionally one cipher), and enumerates
// candidate cipher suites.
//
// There is no third-party Go library that reimplements TLS handshakes for
// general client use, so version/cipher capability is queried directly
// against the stdlib crypto/tls (see DESIGN.md).
package tlsprobe

import (
	"crypto/tls"

	"github.com/xmppcheck/probe/result"
)

// versionConst maps our ordered [result.TLSVersion] enumeration onto the
// crypto/tls version constants the host platform actually implements.
// SSLv2 and SSLv3 have no entry: crypto/tls has never implemented them, so
// they are silently absent from [SupportedVersions].
var versionConst = map[result.TLSVersion]uint16{
	result.TLSv1:   tls.VersionTLS10,
	result.TLSv1_1: tls.VersionTLS11,
	result.TLSv1_2: tls.VersionTLS12,
	result.TLSv1_3: tls.VersionTLS13,
}

// SupportedVersions reports which [result.TLSVersion] values the host
// platform can negotiate, iterating the enumeration in reverse (newest
// first). Versions named in exclude are omitted.
func SupportedVersions(exclude ...result.TLSVersion) []result.TLSVersion {
	excluded := make(map[result.TLSVersion]bool, len(exclude))
	for _, v := range exclude {
		excluded[v] = true
	}

	var out []result.TLSVersion
	for i := len(result.AllTLSVersions) - 1; i >= 0; i-- {
		v := result.AllTLSVersions[i]
		if excluded[v] {
			continue
		}
		if _, ok := versionConst[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// ContextFor builds a [*tls.Config] that negotiates only version and
// nothing else, regardless of platform defaults.
//
// Hostname verification is disabled (serverName is still sent via SNI, but
// never checked against the peer certificate) and certificate verification
// is skipped so the handshake completes and the peer certificate is
// captured even when untrusted. serverName may be empty if SNI is not
// desired.
func ContextFor(version result.TLSVersion, serverName string) (*tls.Config, bool) {
	v, ok := versionConst[version]
	if !ok {
		return nil, false
	}
	return &tls.Config{
		ServerName:         serverName,
		MinVersion:         v,
		MaxVersion:         v,
		InsecureSkipVerify: true, //nolint:gosec // certs are collected for reporting, not judged
	}, true
}

// CiphersFor lists the cipher-suite names that may be attempted under
// version, using [tls.CipherSuites] and [tls.InsecureCipherSuites] as the
// library-native equivalent of the source tool's
// "ALL:!aNULL:!SRP:!PSK" OpenSSL deny-pattern: Go's suite list already
// excludes anonymous, PSK, and SRP ciphers by construction.
func CiphersFor(version result.TLSVersion) []string {
	v, ok := versionConst[version]
	if !ok {
		return nil
	}

	var names []string
	for _, cs := range allCipherSuites() {
		for _, sv := range cs.SupportedVersions {
			if sv == v {
				names = append(names, cs.Name)
				break
			}
		}
	}
	return names
}

func allCipherSuites() []*tls.CipherSuite {
	all := tls.CipherSuites()
	return append(append([]*tls.CipherSuite{}, all...), tls.InsecureCipherSuites()...)
}

// CipherID returns the crypto/tls cipher suite ID for the given name, for
// use when restricting a handshake to exactly one cipher via ContextFor's
// CipherSuites override (see [RestrictCipher]).
func CipherID(name string) (uint16, bool) {
	for _, cs := range allCipherSuites() {
		if cs.Name == name {
			return cs.ID, true
		}
	}
	return 0, false
}

// RestrictCipher narrows cfg (as returned by [ContextFor]) to attempt only
// the named cipher suite.
//
// For TLS 1.3, crypto/tls ignores CipherSuites entirely: the runtime always
// selects among its three built-in AEAD suites by its own preference. This
// call still sets CipherSuites for 1.3 configs for forward-compatibility
// and documentation purposes, but this is a known, intentional deviation
// from exhaustive per-cipher TLS 1.3 probing, not a silently "fixed"
// limitation.
func RestrictCipher(cfg *tls.Config, name string) bool {
	id, ok := CipherID(name)
	if !ok {
		return false
	}
	cfg.CipherSuites = []uint16{id}
	return true
}

// VersionCipher is one (version, cipher) pair yielded by [ProtocolCiphers].
type VersionCipher struct {
	Version result.TLSVersion
	Cipher  string
}

// ProtocolCiphers is the Cartesian product over [SupportedVersions] x
// [CiphersFor], deduplicated by cipher name (first-seen wins).
// Deduplication is global across versions: because SupportedVersions
// iterates newest-first, a cipher valid under multiple versions is only
// ever reported under the highest version that offers it. This is an
// intentional deviation from exhaustive enumeration.
func ProtocolCiphers() []VersionCipher {
	seen := make(map[string]bool)
	var out []VersionCipher
	for _, v := range SupportedVersions() {
		for _, c := range CiphersFor(v) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, VersionCipher{Version: v, Cipher: c})
		}
	}
	return out
}
