// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/engine"
	"github.com/xmppcheck/probe/jid"
	"github.com/xmppcheck/probe/result"
)

// runFunc is the shape shared by every engine subcommand entry point.
type runFunc func(ctx context.Context, cfg engine.Config, domain string) ([]result.ProbeResult, []diagtag.Tag, error)

func newSubcommand(flags *rootFlags, use, short string, kernel result.Kernel, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <domain>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := normalizeDomain(args[0])
			if err != nil {
				return err
			}
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			results, tags, err := run(cmd.Context(), cfg, domain)
			if err != nil {
				return err
			}
			return render(cmd, flags.format, kernel, results, tags)
		},
	}
}

// normalizeDomain validates arg as a bare JID domainpart (no localpart or
// resourcepart expected) and returns its normalized form, reusing jid's
// RFC 7622 splitting and validation for CLI argument checking.
func normalizeDomain(arg string) (string, error) {
	j, err := jid.UnsafeFromString(arg)
	if err != nil {
		return "", fmt.Errorf("xmppcheck: invalid domain %q: %w", arg, err)
	}
	if j.Localpart() != "" || j.Resourcepart() != "" {
		return "", fmt.Errorf("xmppcheck: %q must be a bare domain, not a full JID", arg)
	}
	return j.Domainpart(), nil
}

func render(cmd *cobra.Command, format string, kernel result.Kernel, results []result.ProbeResult, tags []diagtag.Tag) error {
	switch format {
	case "table":
		return renderTable(cmd, kernel, results, tags)
	case "json":
		return renderJSON(cmd, kernel, results, tags)
	case "csv":
		return renderCSV(cmd, kernel, results, tags)
	default:
		return fmt.Errorf("xmppcheck: unknown output format %q", format)
	}
}
