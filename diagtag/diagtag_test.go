// Copyright 2024 The xmppcheck Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package diagtag

import (
	"reflect"
	"sync"
	"testing"
)

func TestEmitDrain(t *testing.T) {
	s := New()
	s.Emit(Error, IDSRVMissing, "no SRV records", "dns")
	s.Emit(Warning, IDNoARecords, "no A records", "dns")

	got := s.Drain()
	want := []Tag{
		{ID: IDSRVMissing, Level: Error, Message: "no SRV records", Group: "dns"},
		{ID: IDNoARecords, Level: Warning, Message: "no A records", Group: "dns"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Drain() = %#v, want %#v", got, want)
	}
}

func TestDrainIdempotent(t *testing.T) {
	s := New()
	s.Emit(Info, 1, "hello", "test")
	_ = s.Drain()

	second := s.Drain()
	if len(second) != 0 {
		t.Fatalf("second Drain() = %#v, want empty", second)
	}
}

func TestDrainEmpty(t *testing.T) {
	s := New()
	got := s.Drain()
	if len(got) != 0 {
		t.Fatalf("Drain() on empty sink = %#v, want empty", got)
	}
}

func TestConcurrentEmit(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			s.Emit(Info, i, "concurrent", "test")
		}(i)
	}
	wg.Wait()

	got := s.Drain()
	if len(got) != n {
		t.Fatalf("Drain() returned %d tags, want %d", len(got), n)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		Debug:   "debug",
		Info:    "info",
		Warning: "warning",
		Error:   "error",
	}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}
