package bgen

import (
	"encoding/binary"
	"fmt"

	"github.com/carbocation/pfx"
)

type Sample struct {
	SampleID string
}

// ReadSamples returns the sample identifiers stored in the header's sample
// block, in the order used by every variant's genotype data. Files without a
// sample block get positional identifiers (sample_0, sample_1, ...).
func ReadSamples(b *BGEN) ([]Sample, error) {
	if b.File == nil {
		return nil, pfx.Err(fmt.Errorf("b.File is nil"))
	}

	samples := make([]Sample, 0, b.NSamples)

	if b.FlagHasSampleIDs == 0 {
		for i := uint32(0); i < b.NSamples; i++ {
			samples = append(samples, Sample{SampleID: fmt.Sprintf("sample_%d", i)})
		}
		return samples, nil
	}

	// SamplesStart is at sample_block_length, and SamplesStart+4 is at
	// number_samples. The whole block is read at once.
	header := make([]byte, 8)
	if err := b.parseAtOffsetWithBuffer(int64(b.SamplesStart), header); err != nil {
		return nil, pfx.Err(err)
	}
	blockLength := binary.LittleEndian.Uint32(header[:4])
	if n := binary.LittleEndian.Uint32(header[4:]); n != b.NSamples {
		return nil, pfx.Err(fmt.Errorf("The sample block lists %d samples but the header declares %d", n, b.NSamples))
	}
	if blockLength < 8 {
		return nil, pfx.Err(fmt.Errorf("The sample block length %d is too small", blockLength))
	}

	block := make([]byte, blockLength-8)
	if err := b.parseAtOffsetWithBuffer(int64(b.SamplesStart)+8, block); err != nil {
		return nil, pfx.Err(err)
	}

	offset := 0
	for i := uint32(0); i < b.NSamples; i++ {
		if offset+2 > len(block) {
			return nil, pfx.Err(fmt.Errorf("The sample block ended after %d of %d samples", i, b.NSamples))
		}
		sampleTextSize := int(binary.LittleEndian.Uint16(block[offset:]))
		offset += 2
		if offset+sampleTextSize > len(block) {
			return nil, pfx.Err(fmt.Errorf("Sample %d runs past the end of the sample block", i))
		}
		samples = append(samples, Sample{SampleID: string(block[offset : offset+sampleTextSize])})
		offset += sampleTextSize
	}

	return samples, nil
}
