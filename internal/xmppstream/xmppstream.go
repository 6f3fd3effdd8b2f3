// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmppstream is a minimal XMPP stream client: it opens a stream,
// reads up to and including <stream:features/>, and optionally performs a
// STARTTLS upgrade.
//
// A general-purpose XMPP library builds a StreamFeature plugin system
// around a long-lived, fully negotiated connection, because it carries
// stanzas after negotiation completes. A probe only ever needs to observe
// how far negotiation gets, so this package keeps the familiar
// token-by-token stream decoding idiom but drops the feature-plugin
// abstraction, session state bitmask, and anything downstream of STARTTLS.
package xmppstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"net"

	"github.com/xmppcheck/probe/errors"
	"github.com/xmppcheck/probe/internal"
	"github.com/xmppcheck/probe/internal/decl"
	"github.com/xmppcheck/probe/internal/ns"
)

// Namespaces used by the stream handshake. NSStartTLS is shared with the
// rest of the module's internal packages; jabber:client, jabber:server, and
// the stream namespace itself have no other consumer so they stay local.
const (
	NSClient   = "jabber:client"
	NSServer   = "jabber:server"
	NSStartTLS = ns.StartTLS
	NSStream   = "http://etherx.jabber.org/streams"
)

// ErrStreamError is returned when the peer responds to the opening stream
// handshake with a <stream:error/> rather than a <stream:stream/> start tag.
var ErrStreamError = stderrors.New("xmppstream: peer sent a stream-level error")

// ErrBadFormat is returned when the opening tag from the peer is not a
// recognizable stream start element.
var ErrBadFormat = stderrors.New("xmppstream: malformed stream response")

// ErrNoStartTLS reports that the peer's feature list did not offer STARTTLS.
// Upgrade does not inspect the feature list and never returns it.
var ErrNoStartTLS = stderrors.New("xmppstream: peer did not advertise STARTTLS")

// ErrTLSFailure is returned by Upgrade when the peer answered STARTTLS with
// <failure/>.
var ErrTLSFailure = stderrors.New("xmppstream: peer refused STARTTLS negotiation")

// Features is the result of reading a stream's opening handshake through
// <stream:features/>.
type Features struct {
	// StreamID is the id= attribute the peer assigned the stream, if any.
	StreamID string

	// Names lists every feature child element's qualified name, in the order
	// they appeared.
	Names []xml.Name

	// STARTTLS reports whether a STARTTLS feature was offered and, if so,
	// whether the peer marked it <required/>.
	STARTTLS         bool
	STARTTLSRequired bool

	// PeerVersion is the parsed version= attribute from the peer's opening
	// stream tag, or internal.EmptyVersion if the peer omitted it.
	PeerVersion internal.Version
}

// Offers reports whether a feature with the given namespace and local name
// was present in the features list.
func (f Features) Offers(space, local string) bool {
	for _, n := range f.Names {
		if n.Space == space && n.Local == local {
			return true
		}
	}
	return false
}

// Session holds the XML encoder/decoder pair for an opened stream, so that a
// later call to Upgrade can continue reading/writing on the same
// underlying connection.
type Session struct {
	conn   net.Conn
	domain string
	toSide bool // true when probing the server-to-server namespace
	dec    *xml.Decoder
}

// Open sends a stream header to conn addressed to domain and reads the
// peer's response up to and including its <stream:features/> element.
//
// server selects whether the jabber:server namespace is used (s2s) instead
// of jabber:client.
func Open(ctx context.Context, conn net.Conn, domain string, server bool) (*Session, Features, error) {
	xmlns := NSClient
	if server {
		xmlns = NSServer
	}
	id := internal.RandomID(16)

	if err := writeStreamOpen(conn, domain, xmlns, id); err != nil {
		return nil, Features{}, fmt.Errorf("xmppstream: writing stream open: %w", err)
	}

	dec := xml.NewDecoder(conn)
	sess := &Session{conn: conn, domain: domain, toSide: server, dec: dec}

	streamID, version, err := expectStreamOpen(ctx, dec)
	if err != nil {
		return sess, Features{}, err
	}
	features, err := readFeatures(ctx, dec)
	if err != nil {
		return sess, features, err
	}
	features.StreamID = streamID
	features.PeerVersion = version
	return sess, features, nil
}

// writeStreamOpen prints the XML header and opening <stream:stream> tag by
// hand: the stdlib xml package cannot itself encode the namespaced
// stream:stream start element, and printing is both simpler and faster than
// fighting it with a synthetic encoder.
func writeStreamOpen(w io.Writer, domain, xmlns, id string) error {
	var buf bytes.Buffer
	buf.WriteString(decl.XMLHeader)
	buf.WriteString("<stream:stream to='")
	if err := xml.EscapeText(&buf, []byte(domain)); err != nil {
		return err
	}
	buf.WriteString("' id='")
	if err := xml.EscapeText(&buf, []byte(id)); err != nil {
		return err
	}
	buf.WriteString("' version='1.0' xml:lang='en' xmlns='")
	buf.WriteString(xmlns)
	buf.WriteString("' xmlns:stream='")
	buf.WriteString(NSStream)
	buf.WriteString("'>")
	_, err := w.Write(buf.Bytes())
	return err
}

// expectStreamOpen reads tokens until it sees the peer's <stream:stream>
// start element (returning its id= and version= attributes) or a fatal
// condition.
func expectStreamOpen(ctx context.Context, dec *xml.Decoder) (string, internal.Version, error) {
	for {
		select {
		case <-ctx.Done():
			return "", internal.EmptyVersion, ctx.Err()
		default:
		}
		tok, err := dec.Token()
		if err != nil {
			return "", internal.EmptyVersion, err
		}
		switch t := tok.(type) {
		case xml.ProcInst:
			continue
		case xml.StartElement:
			if t.Name.Local == "error" && t.Name.Space == NSStream {
				var se errors.StreamError
				if decErr := dec.DecodeElement(&se, &t); decErr != nil {
					return "", internal.EmptyVersion, fmt.Errorf("%w: %v", ErrStreamError, decErr)
				}
				return "", internal.EmptyVersion, fmt.Errorf("%w: %w", ErrStreamError, &se)
			}
			if t.Name.Local != "stream" || t.Name.Space != NSStream {
				return "", internal.EmptyVersion, ErrBadFormat
			}
			id := internal.GetAttr(t.Attr, "id")
			version := internal.EmptyVersion
			if raw := internal.GetAttr(t.Attr, "version"); raw != "" {
				if v, err := internal.ParseVersion(raw); err == nil {
					version = v
				}
			}
			return id, version, nil
		default:
			return "", internal.EmptyVersion, ErrBadFormat
		}
	}
}

// readFeatures reads the <stream:features/> element and everything in it,
// returning the set of feature names observed.
func readFeatures(ctx context.Context, dec *xml.Decoder) (Features, error) {
	var f Features

	// First token should be the <stream:features> start element.
	tok, err := dec.Token()
	if err != nil {
		return f, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != "features" || start.Name.Space != NSStream {
		return f, ErrBadFormat
	}

	for {
		select {
		case <-ctx.Done():
			return f, ctx.Err()
		default:
		}
		tok, err := dec.Token()
		if err != nil {
			return f, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			f.Names = append(f.Names, t.Name)
			if t.Name.Local == "starttls" && t.Name.Space == NSStartTLS {
				f.STARTTLS = true
				f.STARTTLSRequired = hasRequiredChild(dec, t)
				continue
			}
			if err := dec.Skip(); err != nil {
				return f, err
			}
		case xml.EndElement:
			if t.Name.Local == "features" && t.Name.Space == NSStream {
				return f, nil
			}
			return f, ErrBadFormat
		}
	}
}

// hasRequiredChild consumes a <starttls> element's children looking for a
// <required/> child, leaving the decoder positioned after </starttls>.
func hasRequiredChild(dec *xml.Decoder, start xml.StartElement) bool {
	required := false
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return required
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && t.Name.Local == "required" {
				required = true
			}
			depth++
		case xml.EndElement:
			depth--
			if depth < 0 {
				return required
			}
		}
	}
}

// Upgrade negotiates STARTTLS on sess and returns the freshly upgraded TLS
// connection together with its negotiated ConnectionState. cfg must already
// be restricted to the version/cipher the caller wants attempted (see
// tlsprobe.ContextFor/RestrictCipher); Upgrade does not alter it.
//
// Upgrade does not itself restart the stream afterwards: callers that need
// post-STARTTLS stream:features (as the probe kernels do) call Open again on
// the returned net.Conn.
func Upgrade(ctx context.Context, sess *Session, cfg *tls.Config) (net.Conn, *tls.ConnectionState, error) {
	if _, err := fmt.Fprintf(sess.conn, "<starttls xmlns='%s'/>", NSStartTLS); err != nil {
		return nil, nil, fmt.Errorf("xmppstream: sending starttls: %w", err)
	}

	tok, err := sess.dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("xmppstream: reading starttls response: %w", err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Space != NSStartTLS {
		return nil, nil, ErrBadFormat
	}
	if err := sess.dec.Skip(); err != nil {
		return nil, nil, fmt.Errorf("xmppstream: skipping %s element: %w", start.Name.Local, err)
	}

	switch start.Name.Local {
	case "failure":
		return nil, nil, ErrTLSFailure
	case "proceed":
		// fall through to the handshake below
	default:
		return nil, nil, ErrBadFormat
	}

	tlsConn := tls.Client(sess.conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("xmppstream: TLS handshake: %w", err)
	}
	state := tlsConn.ConnectionState()
	return tlsConn, &state, nil
}
