// Package bgen reads BGEN v1.1 and v1.2 genotype probability files, and their
// .bgi sqlite indexes, and converts each variant into a plem.Site whose PL
// field is derived from the stored genotype probabilities.
package bgen

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// MagicNumber contains the value required to confirm that a file is BGEN-conformant
const MagicNumber = "bgen"

const (
	offsetVariant        = 0
	offsetHeaderLength   = 4
	offsetNumberVariants = 8
	offsetNumberSamples  = 12
	offsetMagicNumber    = 16
	offsetFreeStorage    = 20
)

// BGENVersion is the most recent version of the BGEN file format that can be
// read
const BGENVersion = "1.3"

// ReaderAtCloser is the random access a BGEN needs from its underlying file.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// BGEN is the main object used for parsing BGEN files. A BGEN is not safe for
// concurrent use by multiple VariantReaders; open one per goroutine.
type BGEN struct {
	FilePath         string
	File             ReaderAtCloser
	NVariants        uint32
	NSamples         uint32
	FlagCompression  Compression
	FlagLayout       Layout
	FlagHasSampleIDs uint32
	SamplesStart     uint32
	VariantsStart    uint32
}

// Open attempts to read a bgen file located at path. If successful,
// this returns a new BGEN object. Otherwise, it returns an error.
func Open(path string) (*BGEN, error) {
	return OpenWithClient(context.Background(), path, nil)
}

// OpenWithClient is like Open, but paths beginning with gs:// are read from
// Google Cloud Storage through client.
func OpenWithClient(ctx context.Context, path string, client *storage.Client) (*BGEN, error) {
	b := &BGEN{
		FilePath: path,
	}

	if strings.HasPrefix(path, "gs://") {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s is a Google Storage path, but no storage client was provided", path))
		}
		file, err := openGoogleStorage(ctx, path, client)
		if err != nil {
			return nil, pfx.Err(err)
		}
		b.File = file
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		b.File = file
	}

	if err := populateBGENHeader(b); err != nil {
		b.File.Close()
		return nil, pfx.Err(err)
	}

	return b, nil
}

// Close releases the underlying file.
func (b *BGEN) Close() error {
	if b.File == nil {
		return nil
	}
	return b.File.Close()
}

func populateBGENHeader(b *BGEN) error {
	var headerLength int64
	buffer := make([]byte, 4)

	if err := b.parseAtOffsetWithBuffer(offsetVariant, buffer); err != nil {
		return pfx.Err(err)
	}
	b.VariantsStart = binary.LittleEndian.Uint32(buffer) + 4 // First variant is at variant_offset + 4

	if err := b.parseAtOffsetWithBuffer(offsetHeaderLength, buffer); err != nil {
		return pfx.Err(err)
	}
	headerLength = int64(binary.LittleEndian.Uint32(buffer))
	if headerLength < offsetFreeStorage {
		return pfx.Err(fmt.Errorf("The BGEN header length %d is shorter than the %d bytes of fixed header fields", headerLength, offsetFreeStorage))
	}

	b.SamplesStart = uint32(headerLength + 4)

	if err := b.parseAtOffsetWithBuffer(offsetNumberVariants, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NVariants = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetNumberSamples, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NSamples = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetMagicNumber, buffer); err != nil {
		return pfx.Err(err)
	}
	// Very old files may carry four zero bytes instead of the magic number.
	if MagicNumber != string(buffer) && binary.LittleEndian.Uint32(buffer) != 0 {
		return pfx.Err(fmt.Errorf("The BGEN header value at offset %d is expected to resolve to the Magic Number %s (%v when printed as a byte slice), but instead resolved to byte slice %v", offsetMagicNumber, MagicNumber, []byte(MagicNumber), buffer))
	}

	if err := b.parseAtOffsetWithBuffer(headerLength, buffer); err != nil {
		return pfx.Err(err)
	}
	flags := binary.LittleEndian.Uint32(buffer)
	b.FlagCompression = Compression(flags & 3)
	b.FlagLayout = Layout((flags & (15 << 2)) >> 2)
	b.FlagHasSampleIDs = (flags & (1 << 31)) >> 31

	if b.FlagLayout != Layout1 && b.FlagLayout != Layout2 {
		return pfx.Err(fmt.Errorf("The BGEN layout %s is not supported", b.FlagLayout))
	}
	if b.FlagLayout == Layout1 && b.FlagCompression == CompressionZStandard {
		return pfx.Err(fmt.Errorf("Compression choice %s is not compatible with Layout %s", b.FlagCompression, b.FlagLayout))
	}

	return nil
}

func (b *BGEN) parseAtOffsetWithBuffer(offset int64, buffer []byte) error {
	_, err := b.File.ReadAt(buffer, offset)
	if err != nil {
		return pfx.Err(err)
	}

	return nil
}
