// pairld estimates two-site haplotype frequencies and LD r for pairs of nearby
// sites and prints them as TSV.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/plem"
	"github.com/carbocation/plem/bgen"
	"github.com/carbocation/plem/vcf"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

func main() {
	vcfPath := flag.String("vcf", "", "VCF with PL or GL sample fields. With -region it must be bgzipped and tabix indexed. May be a gs:// path.")
	bgenPath := flag.String("bgen", "", "BGEN file. Ignored if -vcf is set.")
	idxPath := flag.String("bgi", "", "BGEN index. Defaults to the -bgen path plus .bgi")
	region := flag.String("region", "", "Restrict to chrom:start-end (1-based, inclusive)")
	rsids := flag.String("rsids", "", "Comma separated variant IDs to load from the BGEN index, instead of -region")
	window := flag.Uint("window", 0, "Pair every two sites within this many bases. 0 pairs each site with the next one.")
	workers := flag.Int("workers", 0, "Number of pairs estimated concurrently. 0 uses every CPU.")
	flag.Parse()

	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}

	if *vcfPath == "" && *bgenPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Either -vcf or -bgen is required")
	}

	var locus *vcf.Locus
	if *region != "" {
		l, err := parseRegion(*region)
		if err != nil {
			log.Fatalln(err)
		}
		locus = &l
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

	var sites []*plem.Site
	var err error
	if *vcfPath != "" {
		sites, err = vcfSites(expandHome(*vcfPath), client, locus)
	} else {
		if *idxPath == "" {
			*idxPath = *bgenPath + ".bgi"
		}
		var ids []string
		if *rsids != "" {
			ids = strings.Split(*rsids, ",")
		}
		sites, err = bgenSites(ctx, expandHome(*bgenPath), expandHome(*idxPath), client, locus, ids)
	}
	if err != nil {
		log.Fatalln(err)
	}

	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Chromosome != sites[j].Chromosome {
			return sites[i].Chromosome < sites[j].Chromosome
		}
		return sites[i].Position < sites[j].Position
	})

	var pairs []plem.Pair
	if *window == 0 {
		pairs = plem.AdjacentPairs(sites)
	} else {
		pairs = plem.WindowPairs(sites, uint32(*window))
	}
	log.Println("Loaded", len(sites), "sites forming", len(pairs), "pairs")

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	fmt.Fprintln(out, strings.Join([]string{"chromA", "posA", "idA", "chromB", "posB", "idB", "f00", "f01", "f10", "f11", "D", "r"}, "\t"))

	nFailed := 0
	for _, res := range plem.EstimatePairs(ctx, pairs, *workers) {
		if res.Err != nil {
			nFailed++
			log.Warnln(res.Err)
			continue
		}
		a, b, h := res.Pair.A, res.Pair.B, res.LD.Haplotypes
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%d\t%s\t%g\t%g\t%g\t%g\t%g\t%g\n",
			a.Chromosome, a.Position, a.ID, b.Chromosome, b.Position, b.ID,
			h[0], h[1], h[2], h[3], res.LD.D, res.LD.R)
	}

	log.Printf("Estimated %d pairs, %d could not be estimated\n", len(pairs)-nFailed, nFailed)
}

func vcfSites(path string, client *storage.Client, locus *vcf.Locus) ([]*plem.Site, error) {
	if locus != nil {
		log.Println("Querying", path, "for", *locus)
		return vcf.Region(path, client, *locus)
	}

	r, err := vcf.Open(path, client)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.ReadAll()
}

func bgenSites(ctx context.Context, path, idxPath string, client *storage.Client, locus *vcf.Locus, rsids []string) ([]*plem.Site, error) {
	b, err := bgen.OpenWithClient(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	vr := b.NewVariantReader()

	if locus == nil && len(rsids) == 0 {
		variants, err := vr.ReadAll()
		if err != nil {
			return nil, err
		}
		return toSites(variants), nil
	}

	bgi, err := bgen.OpenBGI(idxPath)
	if err != nil {
		return nil, err
	}
	defer bgi.Close()

	var rows []bgen.VariantIndex
	if locus != nil {
		if rows, err = bgi.Region(locus.Chromosome, locus.First, locus.Last); err != nil {
			return nil, err
		}
	}
	for _, rsid := range rsids {
		found, err := bgi.Lookup(strings.TrimSpace(rsid))
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			log.Warnln("No variant named", rsid, "in", idxPath)
		}
		rows = append(rows, found...)
	}

	variants := make([]*bgen.Variant, 0, len(rows))
	for i, row := range rows {
		if i%1000 == 0 {
			log.Println("Read", i, "of", len(rows), "variants")
		}
		v := vr.ReadAt(int64(row.FileStartPosition))
		if v == nil {
			return nil, vr.Error()
		}
		variants = append(variants, v)
	}

	return toSites(variants), nil
}

func toSites(variants []*bgen.Variant) []*plem.Site {
	sites := make([]*plem.Site, len(variants))
	for i, v := range variants {
		sites[i] = v.Site()
	}
	return sites
}

// parseRegion reads chrom:start-end.
func parseRegion(region string) (vcf.Locus, error) {
	chrom, span, ok := strings.Cut(region, ":")
	if !ok {
		return vcf.Locus{}, fmt.Errorf("region %q is not of the form chrom:start-end", region)
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return vcf.Locus{}, fmt.Errorf("region %q is not of the form chrom:start-end", region)
	}

	start, err := strconv.ParseUint(strings.ReplaceAll(first, ",", ""), 10, 32)
	if err != nil {
		return vcf.Locus{}, pfx.Err(err)
	}
	end, err := strconv.ParseUint(strings.ReplaceAll(last, ",", ""), 10, 32)
	if err != nil {
		return vcf.Locus{}, pfx.Err(err)
	}
	if end < start {
		return vcf.Locus{}, fmt.Errorf("region %q ends before it starts", region)
	}

	return vcf.Locus{Chromosome: chrom, First: uint32(start), Last: uint32(end)}, nil
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
