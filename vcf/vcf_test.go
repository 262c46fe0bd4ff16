package vcf

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/plem"
	"github.com/carbocation/vcfgo"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/pgzip"
)

const testVCF = `##fileformat=VCFv4.2
##contig=<ID=1,length=249250621>
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=PL,Number=G,Type=Integer,Description="Phred-scaled genotype likelihoods">
##FORMAT=<ID=GL,Number=G,Type=Float,Description="Log10-scaled genotype likelihoods">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	s1	s2	s3	s4
1	100	rs100	A	G	50	PASS	.	GT:PL	0/0:0,30,300	0/1:25,0,40	1/1:200,20,0	./.:.
1	250	.	C	T	50	PASS	.	GT:GL	0/0:0,-1,-10	0/1:-2,0,-2	1/1:-30,-3,0	0/0:0,-1,-10
1	400	rs400	G	A,T	50	PASS	.	GT:PL	0/0:0,10,20,30,40,50	0/2:30,20,10,0,20,30	./.:.,.,.,.,.,.	0/1:5,0,5,50,50,50
`

func writeVCF(t *testing.T, gz bool) string {
	t.Helper()

	name := "test.vcf"
	if gz {
		name += ".gz"
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if !gz {
		if _, err := io.WriteString(f, testVCF); err != nil {
			t.Fatal(err)
		}
		return path
	}

	w := pgzip.NewWriter(f)
	if _, err := io.WriteString(w, testVCF); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReader(t *testing.T) {
	for _, gz := range []bool{false, true} {
		r, err := Open(writeVCF(t, gz), nil)
		if err != nil {
			t.Fatalf("gz=%v: %v", gz, err)
		}

		if diff := cmp.Diff([]string{"s1", "s2", "s3", "s4"}, r.SampleNames()); diff != "" {
			t.Errorf("gz=%v: sample names differ (-expected +got):\n%s", gz, diff)
		}

		sites, err := r.ReadAll()
		r.Close()
		if err != nil {
			t.Fatalf("gz=%v: %v", gz, err)
		}
		if len(sites) != 3 {
			t.Fatalf("gz=%v: got %d sites, expected 3", gz, len(sites))
		}

		first := sites[0]
		if first.ID != "rs100" || first.Chromosome != "1" || first.Position != 100 || first.NSamples != 4 {
			t.Errorf("gz=%v: unexpected first site %+v", gz, first)
		}
		pl, ok := first.Field(plem.FieldPL)
		if !ok {
			t.Fatalf("gz=%v: no PL field", gz)
		}
		expected := []byte{0, 30, 255, 25, 0, 40, 200, 20, 0, 0, 0, 0}
		if diff := cmp.Diff(expected, pl.Data); diff != "" {
			t.Errorf("gz=%v: PL differs (-expected +got):\n%s", gz, diff)
		}

		// GL is converted to PL when PL is absent, and a missing ID is
		// replaced by the position.
		second := sites[1]
		if second.ID != "1:250" {
			t.Errorf("gz=%v: got ID %q", gz, second.ID)
		}
		pl, _ = second.Field(plem.FieldPL)
		expected = []byte{0, 10, 100, 20, 0, 20, 255, 30, 0, 0, 10, 100}
		if diff := cmp.Diff(expected, pl.Data); diff != "" {
			t.Errorf("gz=%v: GL-derived PL differs (-expected +got):\n%s", gz, diff)
		}

		third := sites[2]
		pl, _ = third.Field(plem.FieldPL)
		if third.NAlleles() != 3 || pl.Stride != 6 {
			t.Errorf("gz=%v: got %d alleles with stride %d", gz, third.NAlleles(), pl.Stride)
		}
		if rec, _ := pl.Record(2); !cmp.Equal(rec, make([]byte, 6)) {
			t.Errorf("gz=%v: missing sample should be uninformative, got %v", gz, rec)
		}
	}
}

func TestReaderEOF(t *testing.T) {
	r, err := Open(writeVCF(t, false), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for i := 0; i < 3; i++ {
		if _, err := r.Read(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Got %v, expected io.EOF", err)
	}
}

func TestEstimatesFromVCF(t *testing.T) {
	r, err := Open(writeVCF(t, false), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	sites, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	g, err := plem.EstimateSiteFrequency(sites[0])
	if err != nil {
		t.Fatal(err)
	}
	sum := g[0] + g[1] + g[2]
	if sum < 1-1e-9 || sum > 1+1e-9 {
		t.Errorf("Frequencies %v sum to %g", g, sum)
	}

	// One of each genotype with confident calls, plus a missing sample.
	for k := range g {
		if g[k] < 0.3 || g[k] > 0.37 {
			t.Errorf("Genotype class %d has frequency %g, expected about 1/3", k, g[k])
		}
	}
}

func TestParsePL(t *testing.T) {
	for _, v := range []struct {
		value    string
		expected []byte
		err      bool
	}{
		{"0,30,300", []byte{0, 30, 255}, false},
		{".", []byte{0, 0, 0}, false},
		{"", []byte{0, 0, 0}, false},
		{"0,.,3", []byte{0, 0, 0}, false},
		{"0,30", nil, true},
		{"0,x,3", nil, true},
		{"0,-1,3", nil, true},
	} {
		record := make([]byte, 3)
		err := parsePL(v.value, record)
		if v.err {
			if !errors.Is(err, plem.ErrMalformedLikelihoodField) {
				t.Errorf("parsePL(%q): got %v, expected a malformed field error", v.value, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePL(%q): %v", v.value, err)
		}
		if diff := cmp.Diff(v.expected, record); diff != "" {
			t.Errorf("parsePL(%q) (-expected +got):\n%s", v.value, diff)
		}
	}
}

func TestParseGL(t *testing.T) {
	for _, v := range []struct {
		value    string
		expected []byte
		err      bool
	}{
		{"0,-1,-10", []byte{0, 10, 100}, false},
		{"-5,-2,-3", []byte{30, 0, 10}, false},
		{"-1,-0.25,-99", []byte{8, 0, 255}, false},
		{".", []byte{0, 0, 0}, false},
		{"0,.,-1", []byte{0, 0, 0}, false},
		{"0,-1", nil, true},
		{"0,abc,-1", nil, true},
	} {
		record := make([]byte, 3)
		err := parseGL(v.value, record)
		if v.err {
			if !errors.Is(err, plem.ErrMalformedLikelihoodField) {
				t.Errorf("parseGL(%q): got %v, expected a malformed field error", v.value, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseGL(%q): %v", v.value, err)
		}
		if diff := cmp.Diff(v.expected, record); diff != "" {
			t.Errorf("parseGL(%q) (-expected +got):\n%s", v.value, diff)
		}
	}
}

func TestLocus(t *testing.T) {
	l := Locus{Chromosome: "2", First: 10, Last: 20}
	if l.Chrom() != "2" || l.Start() != 10 || l.End() != 20 {
		t.Errorf("Unexpected locus accessors for %v", l)
	}
	if !strings.HasPrefix(l.String(), "2:10") {
		t.Errorf("Got %q", l.String())
	}
}

func TestSiteFromVariantAfterSampleErrors(t *testing.T) {
	const text = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=PL,Number=G,Type=Integer,Description="Phred-scaled genotype likelihoods">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	s1	s2	s3
7	900	.	A	C	50	PASS	.	GT:PL	0/1:0,.,5	./.:.,.,.	1/1:40,10,0
`
	rdr, err := vcfgo.NewReader(strings.NewReader(text), true)
	if rdr == nil {
		t.Fatal(err)
	}
	variant := rdr.Read()
	if variant == nil {
		t.Fatal(rdr.Error())
	}

	// The first two samples make vcfgo fail to parse their PL as numbers.
	if err := variant.Header.ParseSamples(variant); err == nil {
		t.Fatal("Expected vcfgo to report the partial PL lists")
	}
	if err := parseSamples(variant.Header, variant); err != nil {
		t.Fatalf("parseSamples should tolerate typed-field errors: %v", err)
	}

	site, err := SiteFromVariant(variant)
	if err != nil {
		t.Fatal(err)
	}
	pl, _ := site.Field(plem.FieldPL)
	expected := []byte{0, 0, 0, 0, 0, 0, 40, 10, 0}
	if diff := cmp.Diff(expected, pl.Data); diff != "" {
		t.Errorf("PL differs (-expected +got):\n%s", diff)
	}

	if site.ID != "7:900" || site.RSID != "" {
		t.Errorf("Got ID %q and RSID %q, expected 7:900 and no RSID", site.ID, site.RSID)
	}
	if s := site.String(); strings.Contains(s, "(.)") {
		t.Errorf("Site prints as %q", s)
	}
}
