package bgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type Probability struct {
	NSamples            uint32
	NAlleles            uint16
	MinimumPloidy       uint8
	MaximumPloidy       uint8
	Phased              bool
	NProbabilityBits    uint8 // nbits. Must be 1-32 inclusive (there is no uint4 which would otherwise suffice)
	SampleProbabilities []*SampleProbability
}

// SampleProbability represents the variant data for one specfific individual at
// one specific locus, including information on whether this data is missing,
// what that individual's ploidy is, and then either (1) the probabilities for
// the phased haplotype or (2) the probabilies for the genotypes.
//
// Probabilities is always complete: the value the file leaves implicit (the
// last genotype, or the last allele of each haplotype) is filled in. Phased
// data holds Ploidy consecutive runs of NAlleles haplotype probabilities.
type SampleProbability struct {
	Missing       bool
	Ploidy        uint8 // Limited to 0-63
	Probabilities []float64
}

// parseLayout1Probabilities reads the 6N-byte genotype block used by Layout1:
// three uint16 values per sample, scaled by 32768. Layout1 is always diploid
// and biallelic, and a sample whose three values are zero is missing.
func parseLayout1Probabilities(data []byte, nSamples uint32) (*Probability, error) {
	if len(data) < int(6*nSamples) {
		return nil, fmt.Errorf("Layout1 genotype block has %d bytes, expected %d", len(data), 6*nSamples)
	}

	p := &Probability{
		NSamples:            nSamples,
		NAlleles:            2,
		MinimumPloidy:       2,
		MaximumPloidy:       2,
		NProbabilityBits:    16,
		SampleProbabilities: make([]*SampleProbability, nSamples),
	}

	for i := range p.SampleProbabilities {
		sp := &SampleProbability{Ploidy: 2, Probabilities: make([]float64, 3)}
		sum := 0.0
		for k := 0; k < 3; k++ {
			v := binary.LittleEndian.Uint16(data[6*i+2*k:])
			sp.Probabilities[k] = float64(v) / 32768
			sum += sp.Probabilities[k]
		}
		sp.Missing = sum == 0
		p.SampleProbabilities[i] = sp
	}

	return p, nil
}

// parseLayout2Probabilities reads an uncompressed Layout2 genotype block.
func parseLayout2Probabilities(data []byte) (*Probability, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Layout2 genotype block has only %d bytes", len(data))
	}

	p := &Probability{
		NSamples:      binary.LittleEndian.Uint32(data[0:4]),
		NAlleles:      binary.LittleEndian.Uint16(data[4:6]),
		MinimumPloidy: data[6],
		MaximumPloidy: data[7],
	}
	offset := 8

	if len(data) < offset+int(p.NSamples)+2 {
		return nil, fmt.Errorf("Layout2 genotype block is too short to hold %d ploidy bytes", p.NSamples)
	}
	p.SampleProbabilities = make([]*SampleProbability, p.NSamples)
	for i := range p.SampleProbabilities {
		b := data[offset+i]
		p.SampleProbabilities[i] = &SampleProbability{
			Missing: b&0x80 != 0,
			Ploidy:  b & 0x3f,
		}
	}
	offset += int(p.NSamples)

	switch data[offset] {
	case 0:
		p.Phased = false
	case 1:
		p.Phased = true
	default:
		return nil, fmt.Errorf("Layout2 phased flag is %d, expected 0 or 1", data[offset])
	}
	p.NProbabilityBits = data[offset+1]
	offset += 2
	if p.NProbabilityBits < 1 || p.NProbabilityBits > 32 {
		return nil, fmt.Errorf("Layout2 probability width is %d bits, expected 1-32", p.NProbabilityBits)
	}

	nbits := int(p.NProbabilityBits)
	scale := float64(uint64(1)<<uint(nbits) - 1)
	K := int(p.NAlleles)
	br := newBitReader(bytes.NewReader(data[offset:]))

	for i, sp := range p.SampleProbabilities {
		Z := int(sp.Ploidy)

		// groups of values, each group missing its last member
		var groups, groupSize int
		if p.Phased {
			groups, groupSize = Z, K
		} else {
			groups, groupSize = 1, Choose(Z+K-1, K-1)
		}

		sp.Probabilities = make([]float64, 0, groups*groupSize)
		for g := 0; g < groups; g++ {
			remaining := 1.0
			for j := 0; j < groupSize-1; j++ {
				v, err := br.ReadUint(nbits)
				if err != nil {
					return nil, fmt.Errorf("sample %d: %w", i, err)
				}
				prob := float64(v) / scale
				remaining -= prob
				sp.Probabilities = append(sp.Probabilities, prob)
			}
			if remaining < 0 {
				remaining = 0
			}
			sp.Probabilities = append(sp.Probabilities, remaining)
		}

		if sp.Missing {
			for j := range sp.Probabilities {
				sp.Probabilities[j] = 0
			}
		}
	}

	return p, nil
}

// genotypeProbabilities returns the probability of each unordered diploid
// genotype in VCF order (for alleles j <= k, index k*(k+1)/2 + j). ok is false
// for missing or non-diploid samples.
func (sp *SampleProbability) genotypeProbabilities(nAlleles int, phased bool) (probs []float64, ok bool) {
	if sp.Missing || sp.Ploidy != 2 {
		return nil, false
	}

	ncombs := nAlleles * (nAlleles + 1) / 2
	if !phased {
		if len(sp.Probabilities) != ncombs {
			return nil, false
		}
		return sp.Probabilities, true
	}

	if len(sp.Probabilities) != 2*nAlleles {
		return nil, false
	}
	h1, h2 := sp.Probabilities[:nAlleles], sp.Probabilities[nAlleles:]
	probs = make([]float64, ncombs)
	for k := 0; k < nAlleles; k++ {
		for j := 0; j <= k; j++ {
			if j == k {
				probs[k*(k+1)/2+j] = h1[j] * h2[k]
			} else {
				probs[k*(k+1)/2+j] = h1[j]*h2[k] + h1[k]*h2[j]
			}
		}
	}
	return probs, true
}
