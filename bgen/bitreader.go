package bgen

import (
	"io"
)

// bitReader unpacks the probability values of a Layout2 genotype block. BGEN
// packs values least significant bit first: bit i of the stream is bit i%8 of
// byte i/8, and the first bit read is the lowest bit of the value.
type bitReader struct {
	reader io.ByteReader
	byte   byte
	offset byte

	errCache    error
	lastBit     bool
	resultCache uint64
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{reader: r, offset: 8}
}

func (r *bitReader) ReadBit() (bool, error) {
	if r.offset == 8 {
		if r.byte, r.errCache = r.reader.ReadByte(); r.errCache != nil {
			return false, r.errCache
		}
		r.offset = 0
	}
	r.lastBit = (r.byte>>r.offset)&1 != 0
	r.offset++
	return r.lastBit, nil
}

// ReadUint reads an nbits-wide little-endian value, 1 <= nbits <= 64.
func (r *bitReader) ReadUint(nbits int) (uint64, error) {
	r.resultCache = 0

	// Whole bytes can be taken at once when the stream is byte aligned.
	i := 0
	for ; r.offset == 8 && nbits-i >= 8; i += 8 {
		b, err := r.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		r.resultCache |= uint64(b) << uint(i)
	}

	for ; i < nbits; i++ {
		r.lastBit, r.errCache = r.ReadBit()
		if r.errCache != nil {
			return 0, r.errCache
		}
		if r.lastBit {
			r.resultCache |= 1 << uint(i)
		}
	}
	return r.resultCache, nil
}
