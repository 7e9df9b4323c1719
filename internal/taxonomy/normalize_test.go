package taxonomy

import (
	"reflect"
	"testing"
)

func TestParseLineageRoundTripSanity(t *testing.T) {
	got := ParseLineage("Eukaryota;Metazoa_sp.2;")
	want := []string{"Eukaryota", "Metazoa"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseLineage(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"plain", "Eukaryota;Metazoa;Annelida", []string{"Eukaryota", "Metazoa", "Annelida"}},
		{"separators become spaces", "Bacteria;Alpha-proteo/bacteria_X", []string{"Bacteria", "Alpha proteo bacteria X"}},
		{"unassigned tokens dropped", "Eukaryota;unassigned;Metazoa;Unassigned", []string{"Eukaryota", "Metazoa"}},
		{"sp suffix stripped", "Eukaryota;Calanus sp.", []string{"Eukaryota", "Calanus"}},
		{"spp suffix stripped", "Eukaryota;Calanus spp.", []string{"Eukaryota", "Calanus"}},
		{"digits removed", "Eukaryota;Clade12B3", []string{"Eukaryota", "CladeB"}},
		{"runs of spaces collapse", "Eukaryota;Genus__species", []string{"Eukaryota", "Genus species"}},
		{"short tokens dropped", "Eukaryota;X;Metazoa", []string{"Eukaryota", "Metazoa"}},
		{"token reduced to one char dropped", "Eukaryota;X2", []string{"Eukaryota"}},
		{"blank tokens dropped", "Eukaryota;;;Metazoa;", []string{"Eukaryota", "Metazoa"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLineage(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseLineage(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseLineageDeterministic(t *testing.T) {
	in := "Eukaryota;Metazoa_sp.2;Arthropoda-Copepoda/7"
	first := ParseLineage(in)
	for i := 0; i < 5; i++ {
		if got := ParseLineage(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestCleanVerbatim(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Eukaryota;  ", "Eukaryota"},
		{"unassigned;", "unassigned"},
		{" ;; ", ""},
		{"Bacteria", "Bacteria"},
	}
	for _, tc := range cases {
		if got := cleanVerbatim(tc.in); got != tc.want {
			t.Fatalf("cleanVerbatim(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsTrulyEmpty(t *testing.T) {
	for _, s := range []string{"", "unassigned", "Unassigned", "NaN", "none", "NONE"} {
		if !isTrulyEmpty(s) {
			t.Fatalf("expected %q to be truly empty", s)
		}
	}
	for _, s := range []string{"Bacteria", "eukaryota", "n"} {
		if isTrulyEmpty(s) {
			t.Fatalf("did not expect %q to be truly empty", s)
		}
	}
}
