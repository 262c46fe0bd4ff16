// Package vcf turns VCF records carrying PL (or GL) sample fields into
// plem.Site values. Files may be plain or gzip/bgzip compressed, local or on
// Google Storage.
package vcf

import (
	"bufio"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/carbocation/genomisc"
	"github.com/carbocation/pfx"
	"github.com/carbocation/plem"
	"github.com/carbocation/vcfgo"
	"github.com/klauspost/pgzip"
)

// BufferSize is the size of the buffered reader placed in front of the
// (possibly decompressed) VCF stream.
const BufferSize = 4096 * 8

type Reader struct {
	raw io.ReadSeekCloser
	gz  *pgzip.Reader
	vcf *vcfgo.Reader
}

// Open prepares path for sequential reading. A gs:// path is read through
// client when client is non-nil. Compression is detected from the stream, not
// the file name.
func Open(path string, client *storage.Client) (*Reader, error) {
	raw, err := genomisc.MaybeOpenSeekerFromGoogleStorage(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	r := &Reader{raw: raw}

	var f io.Reader
	r.gz, err = pgzip.NewReader(raw)
	if err != nil {
		r.gz = nil
		if _, err := raw.Seek(0, io.SeekStart); err != nil {
			raw.Close()
			return nil, pfx.Err(err)
		}
		f = raw
	} else {
		f = r.gz
	}

	// Lazy sample parsing: Read parses them once the line is in hand.
	r.vcf, err = vcfgo.NewReader(bufio.NewReaderSize(f, BufferSize), true)
	if err != nil && r.vcf == nil {
		r.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	} else if err != nil {
		// Header problems that still leave a usable reader are tolerated.
		r.vcf.Clear()
	}

	return r, nil
}

// SampleNames lists the samples in the order of every site's records.
func (r *Reader) SampleNames() []string {
	return r.vcf.Header.SampleNames
}

// Read returns the next site, or io.EOF once the file is exhausted.
func (r *Reader) Read() (*plem.Site, error) {
	variant := r.vcf.Read()
	if variant == nil {
		if err := r.vcf.Error(); err != nil {
			return nil, pfx.Err(err)
		}
		return nil, io.EOF
	}
	if err := parseSamples(variant.Header, variant); err != nil {
		return nil, pfx.Err(err)
	}

	// vcfgo accumulates per-line errors; clear them so they do not surface
	// at the end of the file.
	r.vcf.Clear()

	return SiteFromVariant(variant)
}

// ReadAll reads every remaining site.
func (r *Reader) ReadAll() ([]*plem.Site, error) {
	var out []*plem.Site
	for {
		site, err := r.Read()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, site)
	}
}

func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.raw.Close()
}
