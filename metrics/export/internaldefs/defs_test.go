package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsAreUniqueAndPrefixed(t *testing.T) {
	ids := map[uint16]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if ids[uint16(def.ID)] {
			t.Fatalf("duplicate metric id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		ids[uint16(def.ID)] = true
		names[def.Name] = true

		if !strings.HasPrefix(def.Name, "turbodex_auth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
	}
}

func TestBucketsAreCumulative(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
	if len(HistogramBoundSuffix) != len(HistogramUpperBounds)+1 {
		t.Fatal("bucket suffixes must cover the finite bounds plus +Inf")
	}
}
