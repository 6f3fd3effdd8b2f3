// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package probe implements the four probe kernels: functions that turn one
// (endpoint, parameters) tuple into a single [result.ProbeResult].
//
// Kernel parameters are a tagged union ([Params]) rather than a dynamic
// keyword-argument dict; the scheduler dispatches on [Params.Kind] instead
// of branching on kernel identity itself.
package probe

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/xmppcheck/probe/errors"
	"github.com/xmppcheck/probe/internal/xmppstream"
	"github.com/xmppcheck/probe/result"
	"github.com/xmppcheck/probe/tlsprobe"
)

// Kind selects which probe kernel a [Params] value drives.
type Kind int

// The four probe kernels.
const (
	KindSocket Kind = iota
	KindBasic
	KindTLSVersion
	KindTLSCipher
)

// String names the kernel, used for logging.
func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "socket"
	case KindBasic:
		return "basic"
	case KindTLSVersion:
		return "tls_version"
	case KindTLSCipher:
		return "tls_cipher"
	default:
		return "unknown"
	}
}

// Deadlines applied by each kernel.
const (
	SocketDeadline = 2 * time.Second
	XMPPDeadline   = 10 * time.Second
)

// Params is one kernel invocation's parameters: a tagged union over
// {Socket, BasicXMPP, TLSVersion(v), TLSCipher(v,c)}. Only the fields
// relevant to Kind are meaningful.
type Params struct {
	Kind    Kind
	Version result.TLSVersion
	Cipher  string
}

// GetTests enumerates the parameter sets the scheduler must run for kind
// against endpoint: a singleton for the parameter-free kernels (socket,
// basic), one per supported TLS version for the TLS-version kernel, and one
// per (version, cipher) pair for the TLS-cipher kernel.
func GetTests(kind Kind, endpoint result.Endpoint) []Params {
	switch kind {
	case KindSocket:
		return []Params{{Kind: KindSocket}}
	case KindBasic:
		return []Params{{Kind: KindBasic}}
	case KindTLSVersion:
		versions := tlsprobe.SupportedVersions()
		out := make([]Params, len(versions))
		for i, v := range versions {
			out[i] = Params{Kind: KindTLSVersion, Version: v}
		}
		return out
	case KindTLSCipher:
		pairs := tlsprobe.ProtocolCiphers()
		out := make([]Params, len(pairs))
		for i, p := range pairs {
			out[i] = Params{Kind: KindTLSCipher, Version: p.Version, Cipher: p.Cipher}
		}
		return out
	default:
		return nil
	}
}

// Run dispatches endpoint and params to the appropriate kernel, converting
// any internal error into ProbeResult.Success=false at this boundary:
// nothing below the kernel may propagate an error up to the scheduler.
func Run(ctx context.Context, logger *slog.Logger, endpoint result.Endpoint, params Params) result.ProbeResult {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("kernel", params.Kind.String(), "ip", endpoint.IP, "port", endpoint.SRV.Port)
	logger.Debug("probe started")

	var res result.ProbeResult
	switch params.Kind {
	case KindSocket:
		res = runSocket(ctx, endpoint)
	case KindBasic:
		res = runXMPP(ctx, logger, endpoint, nil)
	case KindTLSVersion:
		res = runXMPP(ctx, logger, endpoint, &result.TLSParams{Version: params.Version})
	case KindTLSCipher:
		res = runXMPP(ctx, logger, endpoint, &result.TLSParams{Version: params.Version, Cipher: params.Cipher})
	default:
		res = result.ProbeResult{Endpoint: endpoint, Success: false}
	}
	logger.Debug("probe finished", "success", res.Success)
	return res
}

func runSocket(ctx context.Context, endpoint result.Endpoint) result.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, SocketDeadline)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(endpoint.IP, portString(endpoint.SRV.Port)))
	if err != nil {
		return result.ProbeResult{Endpoint: endpoint, Success: false}
	}
	conn.Close()
	return result.ProbeResult{Endpoint: endpoint, Success: true}
}

// runXMPP drives §4.4's state machine for the basic, TLS-version, and
// TLS-cipher kernels. tlsParams is nil for the basic kernel (no STARTTLS
// attempt is made even when offered) and non-nil for the TLS kernels (a
// STARTTLS/direct-TLS handshake restricted to tlsParams.Version[/Cipher] is
// attempted).
func runXMPP(ctx context.Context, logger *slog.Logger, endpoint result.Endpoint, tlsParams *result.TLSParams) result.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, XMPPDeadline)
	defer cancel()

	res := result.ProbeResult{Endpoint: endpoint, STARTTLS: result.STARTTLSUnknown}
	if endpoint.IsDirectTLS() {
		res.STARTTLS = result.STARTTLSNotApplicable
	}
	if tlsParams != nil {
		res.TLS = tlsParams
	}

	addr := net.JoinHostPort(endpoint.IP, portString(endpoint.SRV.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("connect failed", "error", err)
		return res
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	domain := endpoint.SRV.Domain

	if endpoint.IsDirectTLS() {
		if tlsParams == nil {
			// The basic kernel never attempts TLS itself; a direct-TLS
			// endpoint without a caller-supplied version cannot be probed in
			// plaintext, so there is nothing more to negotiate.
			return res
		}
		cfg, ok := tlsprobe.ContextFor(tlsParams.Version, domain)
		if !ok {
			return res
		}
		if tlsParams.Cipher != "" {
			if !tlsprobe.RestrictCipher(cfg, tlsParams.Cipher) {
				return res
			}
		}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			logger.Debug("direct TLS handshake failed", "error", err)
			return res
		}
		_, features, err := xmppstream.Open(ctx, tlsConn, domain, false)
		if err != nil {
			logger.Debug("stream open over direct TLS failed", "error", err)
			res.FailureReason = streamErrorReason(err)
			return res
		}
		res.Success = true
		res.ProtocolVersion = features.PeerVersion.String()
		return res
	}

	sess, features, err := xmppstream.Open(ctx, conn, domain, false)
	if err != nil {
		logger.Debug("stream open failed", "error", err)
		res.FailureReason = streamErrorReason(err)
		return res
	}
	res.STARTTLS = starttlsPolicy(features)
	res.ProtocolVersion = features.PeerVersion.String()

	if tlsParams == nil {
		// Basic kernel: reaching features is success regardless of STARTTLS.
		res.Success = true
		return res
	}
	if !features.STARTTLS {
		// Cannot exercise the requested TLS version/cipher without a
		// STARTTLS offer; the result documents the observed policy and
		// fails.
		return res
	}

	cfg, ok := tlsprobe.ContextFor(tlsParams.Version, domain)
	if !ok {
		return res
	}
	if tlsParams.Cipher != "" {
		if !tlsprobe.RestrictCipher(cfg, tlsParams.Cipher) {
			return res
		}
	}

	upgraded, _, err := xmppstream.Upgrade(ctx, sess, cfg)
	if err != nil {
		logger.Debug("STARTTLS upgrade failed", "error", err)
		return res
	}
	defer upgraded.Close()

	_, postFeatures, err := xmppstream.Open(ctx, upgraded, domain, false)
	if err != nil {
		logger.Debug("post-STARTTLS stream restart failed", "error", err)
		res.FailureReason = streamErrorReason(err)
		return res
	}
	res.ProtocolVersion = postFeatures.PeerVersion.String()
	res.Success = true
	return res
}

func starttlsPolicy(f xmppstream.Features) result.STARTTLSPolicy {
	switch {
	case !f.STARTTLS:
		return result.STARTTLSNotSupported
	case f.STARTTLSRequired:
		return result.STARTTLSRequired
	default:
		return result.STARTTLSOptional
	}
}

func portString(port uint16) string {
	return strconv.FormatUint(uint64(port), 10)
}

// streamErrorReason extracts the RFC 6120 stream-error name from err, or
// returns "" if err was not a decoded <stream:error/>.
func streamErrorReason(err error) string {
	var se *errors.StreamError
	if stderrors.As(err, &se) {
		return se.Error()
	}
	return ""
}
