// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xmppcheck/probe/diagtag"
	"github.com/xmppcheck/probe/result"
)

func renderJSON(cmd *cobra.Command, kernel result.Kernel, results []result.ProbeResult, tags []diagtag.Tag) error {
	doc := result.ToJSON(kernel, results, tags)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func renderTable(cmd *cobra.Command, kernel result.Kernel, results []result.ProbeResult, tags []diagtag.Tag) error {
	doc := result.ToJSON(kernel, results, tags)

	header := []string{"source", "target", "ip", "port", "success"}
	switch kernel {
	case result.KernelBasic:
		header = append(header, "starttls")
	case result.KernelTLSVersion:
		header = append(header, "protocol", "starttls_required")
	case result.KernelTLSCipher:
		header = append(header, "protocol", "starttls_required", "cipher")
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	for _, rec := range doc.Data {
		row := []string{rec.Source, rec.Target, rec.IP, strconv.FormatUint(uint64(rec.Port), 10), strconv.FormatBool(rec.Success)}
		required := ""
		if rec.STARTTLSRequired != nil {
			required = strconv.FormatBool(*rec.STARTTLSRequired)
		}
		switch kernel {
		case result.KernelBasic:
			row = append(row, rec.STARTTLS)
		case result.KernelTLSVersion:
			row = append(row, rec.Protocol, required)
		case result.KernelTLSCipher:
			row = append(row, rec.Protocol, required, rec.Cipher)
		}
		table.Append(row)
	}
	table.Render()

	if len(doc.Tags) > 0 {
		tagTable := tablewriter.NewWriter(cmd.OutOrStdout())
		tagTable.SetHeader([]string{"id", "level", "group", "message"})
		for _, tag := range doc.Tags {
			tagTable.Append([]string{strconv.Itoa(tag.ID), tag.Level, tag.Group, tag.Message})
		}
		tagTable.Render()
	}
	return nil
}

func renderCSV(cmd *cobra.Command, kernel result.Kernel, results []result.ProbeResult, tags []diagtag.Tag) error {
	doc := result.ToJSON(kernel, results, tags)

	w := csv.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	header := []string{"source", "target", "ip", "port", "success"}
	switch kernel {
	case result.KernelBasic:
		header = append(header, "starttls")
	case result.KernelTLSVersion:
		header = append(header, "protocol", "starttls_required")
	case result.KernelTLSCipher:
		header = append(header, "protocol", "starttls_required", "cipher")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, rec := range doc.Data {
		row := []string{rec.Source, rec.Target, rec.IP, strconv.FormatUint(uint64(rec.Port), 10), strconv.FormatBool(rec.Success)}
		required := ""
		if rec.STARTTLSRequired != nil {
			required = strconv.FormatBool(*rec.STARTTLSRequired)
		}
		switch kernel {
		case result.KernelBasic:
			row = append(row, rec.STARTTLS)
		case result.KernelTLSVersion:
			row = append(row, rec.Protocol, required)
		case result.KernelTLSCipher:
			row = append(row, rec.Protocol, required, rec.Cipher)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
