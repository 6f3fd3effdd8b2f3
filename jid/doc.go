// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

// Package jid implements XMPP addresses (historically called "Jabber ID's" or
// "JID's") as described in RFC 7622, trimmed to the parsing and validation
// this module needs to check a CLI domain argument: splitting a JID string
// into its localpart/domainpart/resourcepart and rejecting the ones RFC 7622
// forbids.
package jid // import "github.com/xmppcheck/probe/jid"
