// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package decl_test

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/xmppcheck/probe/internal/decl"
)

var skipTests = [...]struct {
	in  string
	out []xml.Token
}{
	0: {},
	1: {in: "<a/>", out: []xml.Token{
		xml.StartElement{Name: xml.Name{Local: "a"}, Attr: []xml.Attr{}},
		xml.EndElement{Name: xml.Name{Local: "a"}},
	}},
	2: {in: xml.Header + "<a/>", out: []xml.Token{
		xml.CharData("\n"),
		xml.StartElement{Name: xml.Name{Local: "a"}, Attr: []xml.Attr{}},
		xml.EndElement{Name: xml.Name{Local: "a"}},
	}},
	3: {in: `<?xml?><a/>`, out: []xml.Token{
		xml.StartElement{Name: xml.Name{Local: "a"}, Attr: []xml.Attr{}},
		xml.EndElement{Name: xml.Name{Local: "a"}},
	}},
	4: {in: `<?sgml?><a/>`, out: []xml.Token{
		xml.ProcInst{Target: "sgml"},
		xml.StartElement{Name: xml.Name{Local: "a"}, Attr: []xml.Attr{}},
		xml.EndElement{Name: xml.Name{Local: "a"}},
	}},
}

func TestDecl(t *testing.T) {
	for i, tc := range skipTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			d := decl.Skip(xml.NewDecoder(strings.NewReader(tc.in)))
			var got []xml.Token
			for {
				tok, err := d.Token()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("error reading tokens: %v", err)
				}
				got = append(got, xml.CopyToken(tok))
			}
			if len(got) != len(tc.out) {
				t.Fatalf("got %d tokens, want %d: %v", len(got), len(tc.out), got)
			}
		})
	}
}

func TestImmediateEOF(t *testing.T) {
	d := decl.Skip(xml.NewDecoder(strings.NewReader(`<?xml?>`)))

	for i := 0; i < 2; i++ {
		tok, err := d.Token()
		if err != io.EOF {
			t.Errorf("expected EOF on %d but got %q", i, err)
		}
		if tok != nil {
			t.Errorf("did not expect token on %d but got %T %[2]v", i, tok)
		}
	}
}
