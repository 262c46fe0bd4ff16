package vcf

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/plem"
	"github.com/carbocation/vcfgo"
)

// FieldGL holds log10-scaled genotype likelihoods. It is used when a record
// has no PL.
const FieldGL = "GL"

// SiteFromVariant builds a site from a VCF record whose samples have been
// parsed. Each sample's PL record has one value per unordered genotype, in
// VCF order. Samples without PL or GL, or with a "." among their values, get
// an all-zero record, which the estimators treat as uninformative.
func SiteFromVariant(variant *vcfgo.Variant) (*plem.Site, error) {
	site := &plem.Site{
		ID:         variant.Id(),
		RSID:       variant.Id(),
		Chromosome: variant.Chromosome,
		Position:   uint32(variant.Pos),
		Alleles:    append([]string{variant.Ref()}, variant.Alt()...),
		NSamples:   len(variant.Samples),
	}
	if site.ID == "." || site.ID == "" {
		site.ID = fmt.Sprintf("%s:%d", variant.Chromosome, variant.Pos)
		site.RSID = ""
	}

	K := len(site.Alleles)
	stride := K * (K + 1) / 2
	data := make([]byte, stride*site.NSamples)

	for i, sample := range variant.Samples {
		if sample == nil {
			continue
		}
		record := data[i*stride : (i+1)*stride]

		var err error
		if value, ok := sample.Fields[plem.FieldPL]; ok {
			err = parsePL(value, record)
		} else if value, ok := sample.Fields[FieldGL]; ok {
			err = parseGL(value, record)
		}
		if err != nil {
			return nil, fmt.Errorf("%s sample %d: %w", site, i, err)
		}
	}

	field, err := plem.NewSampleField(stride, data)
	if err != nil {
		return nil, err
	}
	site.SetField(plem.FieldPL, field)

	return site, nil
}

// parseSamples parses the sample columns of v. vcfgo reports typed-field
// problems, such as a "." inside a PL or GL list, as errors while still
// filling in every sample's raw Fields, which is all SiteFromVariant reads.
// Only a record whose samples could not be split out at all is an error.
func parseSamples(h *vcfgo.Header, v *vcfgo.Variant) error {
	err := h.ParseSamples(v)
	if err != nil && v.Samples == nil {
		return fmt.Errorf("%s:%d: %w", v.Chromosome, v.Pos, err)
	}
	return nil
}

// parsePL fills record from a comma separated PL string. Values above 255
// saturate. Missing values leave the record at zero.
func parsePL(value string, record []byte) error {
	if value == "" || value == "." {
		return nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != len(record) {
		return fmt.Errorf("%w: PL %q has %d values, expected %d", plem.ErrMalformedLikelihoodField, value, len(parts), len(record))
	}

	for k, part := range parts {
		if part == "." {
			zero(record)
			return nil
		}
		q, err := strconv.Atoi(part)
		if err != nil || q < 0 {
			return fmt.Errorf("%w: PL %q", plem.ErrMalformedLikelihoodField, value)
		}
		if q > math.MaxUint8 {
			q = math.MaxUint8
		}
		record[k] = byte(q)
	}

	return nil
}

// parseGL converts log10 likelihoods into phred scale, relative to the most
// likely genotype so that the best has PL 0.
func parseGL(value string, record []byte) error {
	if value == "" || value == "." {
		return nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != len(record) {
		return fmt.Errorf("%w: GL %q has %d values, expected %d", plem.ErrMalformedLikelihoodField, value, len(parts), len(record))
	}

	gl := make([]float64, len(parts))
	best := math.Inf(-1)
	for k, part := range parts {
		if part == "." {
			return nil
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || math.IsNaN(v) {
			return fmt.Errorf("%w: GL %q", plem.ErrMalformedLikelihoodField, value)
		}
		gl[k] = v
		best = math.Max(best, v)
	}
	if math.IsInf(best, -1) {
		return nil
	}

	for k, v := range gl {
		q := math.Round(-10 * (v - best))
		if q > math.MaxUint8 || math.IsInf(q, 0) {
			q = math.MaxUint8
		}
		record[k] = byte(q)
	}

	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
