package vcf

import (
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/bix"
	"github.com/carbocation/pfx"
	"github.com/carbocation/plem"
	"github.com/carbocation/vcfgo"
)

// Locus is a 1-based, inclusive genomic interval, as used by tabix queries.
type Locus struct {
	Chromosome string
	First      uint32
	Last       uint32
}

func (l Locus) Chrom() string {
	return l.Chromosome
}

func (l Locus) Start() uint32 {
	return l.First
}

func (l Locus) End() uint32 {
	return l.Last
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d-%d", l.Chromosome, l.First, l.Last)
}

// Region reads the sites of a tabix-indexed (bgzipped, with a .tbi alongside)
// VCF that fall within locus. gs:// paths are read through client.
func Region(path string, client *storage.Client, locus Locus) ([]*plem.Site, error) {
	tbx, err := bix.NewGCP(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer tbx.Close()

	vals, err := tbx.Query(locus)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", locus, err))
	}

	var out []*plem.Site
	for {
		v, err := vals.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		// Unwrap multiple layers to get to vcfgo.Variant{}
		v2, ok := v.(interfaces.VarWrap)
		if !ok {
			return nil, pfx.Err(fmt.Errorf("%s:%d: not a valid VarWrap", v.Chrom(), v.End()))
		}
		snp, ok := v2.IVariant.(*vcfgo.Variant)
		if !ok {
			return nil, pfx.Err(fmt.Errorf("%s:%d: not a valid IVariant", v.Chrom(), v.End()))
		}

		if err := parseSamples(tbx.VReader.Header, snp); err != nil {
			return nil, pfx.Err(err)
		}

		site, err := SiteFromVariant(snp)
		if err != nil {
			return nil, pfx.Err(err)
		}
		out = append(out, site)
	}

	return out, nil
}
