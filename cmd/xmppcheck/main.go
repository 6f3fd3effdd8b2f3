// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Command xmppcheck is the CLI front end for the probe engine: it parses
// flags with cobra, resolves a domain through one of the five subcommands,
// and renders the result in table, JSON, or CSV form.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xmppcheck/probe/engine"
	"github.com/xmppcheck/probe/result"
)

type rootFlags struct {
	client  bool
	server  bool
	noIPv4  bool
	noIPv6  bool
	noXMPPS bool
	format  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{format: "table"}

	root := &cobra.Command{
		Use:   "xmppcheck",
		Short: "Diagnose XMPP service deployments",
	}
	root.PersistentFlags().BoolVarP(&flags.client, "client", "c", false, "probe client-side SRV families (default)")
	root.PersistentFlags().BoolVarP(&flags.server, "server", "s", false, "probe server-side SRV families")
	root.PersistentFlags().BoolVar(&flags.noIPv4, "no-ipv4", false, "do not resolve A records")
	root.PersistentFlags().BoolVar(&flags.noIPv6, "no-ipv6", false, "do not resolve AAAA records")
	root.PersistentFlags().BoolVar(&flags.noXMPPS, "no-xmpps", false, "do not resolve direct-TLS (xmpps-*) SRV records")
	root.PersistentFlags().StringVarP(&flags.format, "format", "f", "table", "output format: table, json, or csv")

	root.AddCommand(
		newSubcommand(flags, "dns", "List discovered endpoints", result.KernelSocket, engine.DNS),
		newSubcommand(flags, "socket", "Probe raw TCP reachability", result.KernelSocket, engine.Socket),
		newSubcommand(flags, "basic", "Probe XMPP stream negotiation", result.KernelBasic, engine.Basic),
		newSubcommand(flags, "tls_version", "Probe supported TLS versions", result.KernelTLSVersion, engine.TLSVersion),
		newSubcommand(flags, "tls_cipher", "Probe supported TLS cipher suites", result.KernelTLSCipher, engine.TLSCipher),
	)
	return root
}

func (f *rootFlags) config() (engine.Config, error) {
	if f.client && f.server {
		return engine.Config{}, fmt.Errorf("xmppcheck: -c and -s are mutually exclusive")
	}
	side := result.SideClient
	if f.server {
		side = result.SideServer
	}
	ipv4, ipv6 := !f.noIPv4, !f.noIPv6
	if !ipv4 && !ipv6 {
		return engine.Config{}, fmt.Errorf("xmppcheck: --no-ipv4 and --no-ipv6 cannot both be set")
	}
	return engine.Config{
		Side:             side,
		IPv4:             ipv4,
		IPv6:             ipv6,
		IncludeDirectTLS: !f.noXMPPS,
		Logger:           slog.Default(),
	}, nil
}
