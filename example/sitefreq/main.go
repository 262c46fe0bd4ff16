// sitefreq estimates genotype frequencies for every site of a VCF or BGEN file
// and prints them as TSV.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/plem"
	"github.com/carbocation/plem/bgen"
	"github.com/carbocation/plem/vcf"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// siteSource yields sites until io.EOF.
type siteSource func() (*plem.Site, error)

func main() {
	vcfPath := flag.String("vcf", "", "VCF (optionally gzipped) with PL or GL sample fields. May be a gs:// path.")
	bgenPath := flag.String("bgen", "", "BGEN file. May be a gs:// path. Ignored if -vcf is set.")
	workers := flag.Int("workers", 0, "Number of sites estimated concurrently. 0 uses every CPU.")
	batch := flag.Int("batch", 1000, "Number of sites read before each concurrent estimation pass")
	flag.Parse()

	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}

	if *vcfPath == "" && *bgenPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Either -vcf or -bgen is required")
	}
	if *batch < 1 {
		*batch = 1
	}

	ctx := context.Background()
	var client *storage.Client
	if strings.HasPrefix(*vcfPath, "gs://") || strings.HasPrefix(*bgenPath, "gs://") {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(pfx.Err(err))
		}
		defer client.Close()
	}

	var next siteSource
	if *vcfPath != "" {
		r, err := vcf.Open(expandHome(*vcfPath), client)
		if err != nil {
			log.Fatalln(err)
		}
		defer r.Close()
		log.Println("Opened", *vcfPath, "with", len(r.SampleNames()), "samples")
		next = r.Read
	} else {
		b, err := bgen.OpenWithClient(ctx, expandHome(*bgenPath), client)
		if err != nil {
			log.Fatalln(err)
		}
		defer b.Close()
		log.Printf("Opened %s: %d variants, %d samples, %s, %s\n", *bgenPath, b.NVariants, b.NSamples, b.FlagLayout, b.FlagCompression)
		vr := b.NewVariantReader()
		next = func() (*plem.Site, error) {
			v := vr.Read()
			if v == nil {
				if err := vr.Error(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			return v.Site(), nil
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	fmt.Fprintln(out, strings.Join([]string{"chrom", "pos", "id", "f0", "f1", "f2", "af"}, "\t"))

	sites := make([]*plem.Site, 0, *batch)
	nSites, nFailed := 0, 0
	flush := func() {
		results := plem.EstimateSites(ctx, sites, *workers)
		for _, res := range results {
			if res.Err != nil {
				nFailed++
				log.Warnln(res.Err)
				continue
			}
			g := res.Frequencies
			fmt.Fprintf(out, "%s\t%d\t%s\t%g\t%g\t%g\t%g\n", res.Site.Chromosome, res.Site.Position, res.Site.ID, g[0], g[1], g[2], g.AlleleFrequency())
		}
		nSites += len(sites)
		log.Println("Processed", nSites, "sites")
		sites = sites[:0]
	}

	for {
		site, err := next()
		if err == io.EOF {
			break
		} else if err != nil {
			log.Fatalln(err)
		}

		sites = append(sites, site)
		if len(sites) == *batch {
			flush()
		}
	}
	if len(sites) > 0 {
		flush()
	}

	log.Printf("Estimated %d sites, %d could not be estimated\n", nSites-nFailed, nFailed)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	usr, err := user.Current()
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	return filepath.Join(usr.HomeDir, path[2:])
}
