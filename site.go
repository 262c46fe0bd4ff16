package plem

import (
	"fmt"
)

// FieldPL is the name of the per-sample phred-scaled genotype likelihood
// field.
const FieldPL = "PL"

// Site is one variant record as seen by the estimators: the sample and allele
// counts, plus any per-sample fields keyed by name. Readers in the vcf and
// bgen packages produce Sites; the estimators never look past this type.
type Site struct {
	ID         string
	RSID       string
	Chromosome string
	Position   uint32
	Alleles    []string
	NSamples   int
	Fields     map[string]*SampleField
}

// NAlleles is the number of alleles (reference included) at the site.
func (s *Site) NAlleles() int {
	return len(s.Alleles)
}

// Field returns the per-sample field with the given name, if present.
func (s *Site) Field(name string) (*SampleField, bool) {
	if s.Fields == nil {
		return nil, false
	}
	f, ok := s.Fields[name]
	return f, ok && f != nil
}

// SetField attaches a per-sample field to the site, replacing any field with
// the same name.
func (s *Site) SetField(name string, f *SampleField) {
	if s.Fields == nil {
		s.Fields = make(map[string]*SampleField)
	}
	s.Fields[name] = f
}

func (s *Site) String() string {
	id := s.RSID
	if id == "" {
		id = s.ID
	}
	if id == "" {
		id = "."
	}
	return fmt.Sprintf("%s:%d(%s)", s.Chromosome, s.Position, id)
}

// SampleField is a flat buffer of fixed-size per-sample records, e.g. the
// three PL bytes of each sample laid end to end.
type SampleField struct {
	Stride int
	Data   []byte
}

// NewSampleField wraps data as records of stride bytes. The stride must be
// positive and must divide len(data).
func NewSampleField(stride int, data []byte) (*SampleField, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("stride must be positive, got %d", stride)
	}
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of stride %d", len(data), stride)
	}
	return &SampleField{Stride: stride, Data: data}, nil
}

// Len is the number of complete records held by the field.
func (f *SampleField) Len() int {
	if f.Stride <= 0 {
		return 0
	}
	return len(f.Data) / f.Stride
}

// Record returns the bytes belonging to sample i.
func (f *SampleField) Record(i int) ([]byte, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("record %d out of range [0,%d)", i, f.Len())
	}
	return f.record(i), nil
}

func (f *SampleField) record(i int) []byte {
	return f.Data[i*f.Stride : (i+1)*f.Stride]
}
