// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package result

import "github.com/xmppcheck/probe/diagtag"

// Kernel identifies which probe kernel produced a [ProbeResult], and
// therefore which extra JSON keys the serialized object should carry.
type Kernel string

// The four probe kernels.
const (
	KernelSocket     Kernel = "socket"
	KernelBasic      Kernel = "basic"
	KernelTLSVersion Kernel = "tls_version"
	KernelTLSCipher  Kernel = "tls_cipher"
)

// JSONRecord is the stable-keyed shape of a single result entry in the CLI's
// JSON output. Serializers key off which fields are populated rather than a
// type hierarchy.
type JSONRecord struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	IP               string `json:"ip"`
	Port             uint16 `json:"port"`
	Success          bool   `json:"success"`
	STARTTLS         string `json:"starttls,omitempty"`
	Protocol         string `json:"protocol,omitempty"`
	STARTTLSRequired *bool  `json:"starttls_required,omitempty"`
	Cipher           string `json:"cipher,omitempty"`
	ProtocolVersion  string `json:"protocol_version,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// JSONTag is the stable-keyed shape of a single diagnostic tag in the CLI's
// JSON output.
type JSONTag struct {
	ID      int    `json:"id"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Group   string `json:"group"`
}

// Document is the top-level `{data: [...], tags: [...]}` shape of every
// subcommand's JSON output.
type Document struct {
	Data []JSONRecord `json:"data"`
	Tags []JSONTag    `json:"tags"`
}

// ToJSON builds a [Document] for the given kernel from raw results and
// drained tags.
func ToJSON(kernel Kernel, results []ProbeResult, tags []diagtag.Tag) Document {
	doc := Document{
		Data: make([]JSONRecord, 0, len(results)),
		Tags: make([]JSONTag, 0, len(tags)),
	}
	for _, r := range results {
		rec := JSONRecord{
			Source:          r.Endpoint.SRV.Source(),
			Target:          r.Endpoint.SRV.Target,
			IP:              r.Endpoint.IP,
			Port:            r.Endpoint.SRV.Port,
			Success:         r.Success,
			ProtocolVersion: r.ProtocolVersion,
			FailureReason:   r.FailureReason,
		}
		switch kernel {
		case KernelBasic:
			rec.STARTTLS = string(r.STARTTLS)
		case KernelTLSVersion:
			if r.TLS != nil {
				rec.Protocol = r.TLS.Version.String()
			}
			required := r.STARTTLS == STARTTLSRequired
			rec.STARTTLSRequired = &required
		case KernelTLSCipher:
			if r.TLS != nil {
				rec.Protocol = r.TLS.Version.String()
				rec.Cipher = r.TLS.Cipher
			}
			required := r.STARTTLS == STARTTLSRequired
			rec.STARTTLSRequired = &required
		}
		doc.Data = append(doc.Data, rec)
	}
	for _, t := range tags {
		doc.Tags = append(doc.Tags, JSONTag{
			ID:      t.ID,
			Level:   t.Level.String(),
			Message: t.Message,
			Group:   t.Group,
		})
	}
	return doc
}
