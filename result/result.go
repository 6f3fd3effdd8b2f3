// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package result defines the uniform, serializable record types produced by
// the probe engine: SRV service records, resolved endpoints, and per-tuple
// probe results.
//
// Rather than an inheritance chain of result types (one per kernel), this
// package uses a single composed [ProbeResult] type: optional fields are
// populated only by the kernels that produce them, and JSON serialization
// keys off which fields are set rather than off a type hierarchy.
package result

import "fmt"

// Proto is the service-discovery "side" requested by a caller.
type Proto string

// The two SRV "sides" a domain can be probed from.
const (
	SideClient Proto = "client"
	SideServer Proto = "server"
)

// Service is one of the four XMPP SRV service names.
type Service string

// The SRV service names this module resolves.
const (
	ServiceXMPPClient  Service = "xmpp-client"
	ServiceXMPPServer  Service = "xmpp-server"
	ServiceXMPPSClient Service = "xmpps-client"
	ServiceXMPPSServer Service = "xmpps-server"
)

// DirectTLS reports whether service implies direct (implicit) TLS, i.e. the
// "xmpps-" family from XEP-0368.
func (s Service) DirectTLS() bool {
	return s == ServiceXMPPSClient || s == ServiceXMPPSServer
}

// SRVRecord is a single service-discovery entry for a domain.
type SRVRecord struct {
	Service  Service `json:"service"`
	Proto    string  `json:"proto"`
	Domain   string  `json:"domain"`
	TTL      uint32  `json:"ttl"`
	Priority uint16  `json:"priority"`
	Weight   uint16  `json:"weight"`
	Port     uint16  `json:"port"`
	Target   string  `json:"target"`
}

// Source returns the DNS owner name this record was resolved from:
// "_{service}._{proto}.{domain}".
func (r SRVRecord) Source() string {
	return fmt.Sprintf("_%s._%s.%s", r.Service, r.Proto, r.Domain)
}

// IsDirectTLS reports whether the connection implied by this record is
// direct TLS (xmpps-*) as opposed to opportunistic STARTTLS.
func (r SRVRecord) IsDirectTLS() bool {
	return r.Service.DirectTLS()
}

// Endpoint is one resolved (SRV answer, IP address) pair to probe; the
// primary key of a probe result.
type Endpoint struct {
	SRV SRVRecord
	IP  string // textual IPv4 or IPv6 address, no brackets or port
}

// IsDirectTLS inherits the direct-TLS-ness of the underlying SRV record.
func (e Endpoint) IsDirectTLS() bool {
	return e.SRV.IsDirectTLS()
}

// TLSVersion is one of the six TLS/SSL protocol versions this module
// enumerates, used only to restrict a handshake to exactly one version.
type TLSVersion int

// The ordered TLS/SSL version enumeration, oldest first. tlsprobe's
// SupportedVersions walks [AllTLSVersions] in reverse (newest first).
const (
	SSLv2 TLSVersion = iota
	SSLv3
	TLSv1
	TLSv1_1
	TLSv1_2
	TLSv1_3
)

// AllTLSVersions lists every version in the enumeration, oldest first.
var AllTLSVersions = []TLSVersion{SSLv2, SSLv3, TLSv1, TLSv1_1, TLSv1_2, TLSv1_3}

// String returns the conventional display name of the version.
func (v TLSVersion) String() string {
	switch v {
	case SSLv2:
		return "SSLv2"
	case SSLv3:
		return "SSLv3"
	case TLSv1:
		return "TLSv1"
	case TLSv1_1:
		return "TLSv1.1"
	case TLSv1_2:
		return "TLSv1.2"
	case TLSv1_3:
		return "TLSv1.3"
	default:
		return "unknown"
	}
}

// STARTTLSPolicy is the observed STARTTLS posture of an endpoint.
type STARTTLSPolicy string

// The STARTTLSPolicy values.
const (
	STARTTLSUnknown       STARTTLSPolicy = "unknown"
	STARTTLSNotApplicable STARTTLSPolicy = "not_applicable"
	STARTTLSNotSupported  STARTTLSPolicy = "not_supported"
	STARTTLSOptional      STARTTLSPolicy = "optional"
	STARTTLSRequired      STARTTLSPolicy = "required"
)

// TLSParams describes the TLS restriction a TLS-aware kernel applied to a
// probe, when applicable.
type TLSParams struct {
	Version TLSVersion
	// Cipher is the attempted cipher suite name. Empty for the TLS-version
	// kernel, which restricts only the version.
	Cipher string
}

// ProbeResult is the uniform result of probing one (endpoint, kernel,
// kernel-params) tuple. Kernel-specific fields are populated only by the
// kernels that produce them.
type ProbeResult struct {
	Endpoint Endpoint
	Success  bool

	// STARTTLS is set by the basic, TLS-version, and TLS-cipher kernels.
	// The zero value (empty string) means the kernel does not report it
	// (the socket kernel never sets this field).
	STARTTLS STARTTLSPolicy

	// TLS is set by the TLS-version and TLS-cipher kernels. Nil for the
	// socket and basic-XMPP kernels.
	TLS *TLSParams

	// ProtocolVersion is the peer's stream version= attribute (e.g.
	// "1.0"), set by the basic, TLS-version, and TLS-cipher kernels once a
	// stream has been opened. Empty if the stream never opened.
	ProtocolVersion string

	// FailureReason names the RFC 6120 stream-level error the peer sent in
	// place of a stream open, when that's why the probe failed. Empty for
	// every other failure mode (dial timeout, TLS handshake failure, ...),
	// which are not further classified.
	FailureReason string
}

// HasTLS reports whether this result carries TLS parameters.
func (r ProbeResult) HasTLS() bool {
	return r.TLS != nil
}
