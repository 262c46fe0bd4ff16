package bgen

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
)

type VariantReader struct {
	VariantsSeen  uint32
	b             *BGEN
	currentOffset int64
	err           error

	// Cached values
	buffer       []byte
	decompressed []byte
}

func (b *BGEN) NewVariantReader() *VariantReader {
	vr := &VariantReader{
		currentOffset: int64(b.VariantsStart),
		b:             b,
	}

	return vr
}

func (vr *VariantReader) Error() error {
	return vr.err
}

// Read returns the next variant, or nil once every variant has been read or an
// error has occurred. Check Error after Read returns nil.
func (vr *VariantReader) Read() *Variant {
	if vr.err != nil || vr.VariantsSeen >= vr.b.NVariants {
		return nil
	}

	v, newOffset, err := vr.parseVariantAtOffset(vr.currentOffset)
	if err == io.EOF {
		// The header promised more variants than the file holds.
		err = fmt.Errorf("variant %d of %d starting at offset %d: %w", vr.VariantsSeen+1, vr.b.NVariants, vr.currentOffset, io.ErrUnexpectedEOF)
	}
	if err != nil {
		vr.err = pfx.Err(err)
		return nil
	}

	vr.VariantsSeen++
	vr.currentOffset = newOffset

	return v
}

// ReadAll reads every remaining variant. It stops at the first read error.
func (vr *VariantReader) ReadAll() ([]*Variant, error) {
	var out []*Variant
	for {
		v := vr.Read()
		if v == nil {
			break
		}
		out = append(out, v)
	}

	return out, vr.Error()
}

// ReadAt parses the variant whose block starts at offset, such as the
// file_start_position of a BGI index row. It does not move the sequential
// position used by Read.
func (vr *VariantReader) ReadAt(offset int64) *Variant {
	v, _, err := vr.parseVariantAtOffset(offset)
	if err != nil {
		vr.err = pfx.Err(err)
		return nil
	}

	return v
}

// parseVariantAtOffset only mutates the VariantReader's cached buffers.
func (vr *VariantReader) parseVariantAtOffset(offset int64) (*Variant, int64, error) {
	v := &Variant{FileStartPosition: offset}
	var err error

VariantLoop:
	for {
		nSamples := vr.b.NSamples

		// Layout1 repeats the sample count ahead of every variant
		if vr.b.FlagLayout == Layout1 {
			if err = vr.readNBytesAtOffset(4, offset); err != nil {
				break
			}
			offset += 4
			nSamples = binary.LittleEndian.Uint32(vr.buffer[:4])
		}

		// ID:
		if v.ID, offset, err = vr.readStringAtOffset(offset); err != nil {
			break
		}

		// RSID
		if v.RSID, offset, err = vr.readStringAtOffset(offset); err != nil {
			break
		}

		// Chrom
		if v.Chromosome, offset, err = vr.readStringAtOffset(offset); err != nil {
			break
		}

		// Position
		if err = vr.readNBytesAtOffset(4, offset); err != nil {
			break
		}
		offset += 4
		v.Position = binary.LittleEndian.Uint32(vr.buffer[:4])

		// NAlleles
		if vr.b.FlagLayout == Layout1 {
			// Assumed to be 2 in Layout1
			v.NAlleles = 2
		} else {
			if err = vr.readNBytesAtOffset(2, offset); err != nil {
				break
			}
			offset += 2
			v.NAlleles = binary.LittleEndian.Uint16(vr.buffer[:2])
		}

		// Allele slice
		var alleleLength int
		for i := uint16(0); i < v.NAlleles; i++ {
			if err = vr.readNBytesAtOffset(4, offset); err != nil {
				break VariantLoop
			}
			offset += 4
			alleleLength = int(binary.LittleEndian.Uint32(vr.buffer[:4]))

			if err = vr.readNBytesAtOffset(alleleLength, offset); err != nil {
				break VariantLoop
			}
			offset += int64(alleleLength)
			v.Alleles = append(v.Alleles, Allele(string(vr.buffer[:alleleLength])))
		}

		// Genotype data
		var block []byte
		if block, offset, err = vr.readGenotypeBlock(offset, nSamples); err != nil {
			break
		}

		if vr.b.FlagLayout == Layout1 {
			v.Probabilities, err = parseLayout1Probabilities(block, nSamples)
		} else {
			v.Probabilities, err = parseLayout2Probabilities(block)
			if err == nil && v.Probabilities.NAlleles != v.NAlleles {
				err = fmt.Errorf("Variant %s declares %d alleles but its genotype block has %d", v.ID, v.NAlleles, v.Probabilities.NAlleles)
			}
		}

		break
	}

	return v, offset, err
}

// readGenotypeBlock returns the uncompressed genotype data block starting at
// offset, and the offset just past it.
func (vr *VariantReader) readGenotypeBlock(offset int64, nSamples uint32) ([]byte, int64, error) {
	comp := vr.b.FlagCompression

	if vr.b.FlagLayout == Layout1 {
		// From the BGEN format description: "If CompressedSNPBlocks=0 this field is omitted
		// and the length of the uncompressed data is C=6N."
		uncompressedSize := int(6 * nSamples)
		if comp == CompressionDisabled {
			if err := vr.readNBytesAtOffset(uncompressedSize, offset); err != nil {
				return nil, offset, err
			}
			return vr.buffer[:uncompressedSize], offset + int64(uncompressedSize), nil
		}

		if err := vr.readNBytesAtOffset(4, offset); err != nil {
			return nil, offset, err
		}
		offset += 4
		genoBlockLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))
		if err := vr.readNBytesAtOffset(genoBlockLength, offset); err != nil {
			return nil, offset, err
		}
		offset += int64(genoBlockLength)

		var err error
		vr.decompressed, err = decompress(comp, vr.decompressed, vr.buffer[:genoBlockLength], uncompressedSize)
		return vr.decompressed, offset, err
	}

	// The genotype layout data block for Layout2 is guaranteed to have a 4
	// byte chunk that indicates how much data is left for this block
	// (skipping ahead by this much will bring you to the next chunk).
	if err := vr.readNBytesAtOffset(4, offset); err != nil {
		return nil, offset, err
	}
	offset += 4
	nextDataOffset := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

	if comp == CompressionDisabled {
		if err := vr.readNBytesAtOffset(nextDataOffset, offset); err != nil {
			return nil, offset, err
		}
		return vr.buffer[:nextDataOffset], offset + int64(nextDataOffset), nil
	}

	// If compression is enabled, there will be a second 4 byte chunk that
	// indicates how large the data chunk is after decompression.
	if nextDataOffset < 4 {
		return nil, offset, fmt.Errorf("Compressed genotype block length %d is too small", nextDataOffset)
	}
	if err := vr.readNBytesAtOffset(4, offset); err != nil {
		return nil, offset, err
	}
	offset += 4
	decompressedDataLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

	// From the BGEN format description: "If CompressedSNPBlocks is nonzero, this is C-4 bytes
	// which can be uncompressed to form D bytes in the format described
	// below." For us, "C" is nextDataOffset.
	genoBlockDataSizeToDecompress := nextDataOffset - 4
	if err := vr.readNBytesAtOffset(genoBlockDataSizeToDecompress, offset); err != nil {
		return nil, offset, err
	}
	offset += int64(genoBlockDataSizeToDecompress)

	var err error
	vr.decompressed, err = decompress(comp, vr.decompressed, vr.buffer[:genoBlockDataSizeToDecompress], decompressedDataLength)
	return vr.decompressed, offset, err
}

func (vr *VariantReader) readStringAtOffset(offset int64) (string, int64, error) {
	if err := vr.readNBytesAtOffset(2, offset); err != nil {
		return "", offset, err
	}
	offset += 2
	stringSize := int(binary.LittleEndian.Uint16(vr.buffer[:2]))
	if err := vr.readNBytesAtOffset(stringSize, offset); err != nil {
		return "", offset, err
	}

	return string(vr.buffer[:stringSize]), offset + int64(stringSize), nil
}

func (vr *VariantReader) readNBytesAtOffset(N int, offset int64) error {
	if vr.buffer == nil || len(vr.buffer) < N {
		vr.buffer = make([]byte, N)
	}

	n, err := vr.b.File.ReadAt(vr.buffer[:N], offset)
	if err == io.EOF && n == N {
		// io.ReaderAt may report EOF alongside a full read at the end of file.
		err = nil
	}
	return err
}
