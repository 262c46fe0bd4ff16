// indexing walks a BGEN file in the order of its BGI index, handing variant
// offsets to a set of workers that each estimate genotype frequencies, and
// prints one TSV row per variant.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/carbocation/plem"
	"github.com/carbocation/plem/bgen"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

type estimate struct {
	row         bgen.VariantIndex
	frequencies plem.GenotypeFrequencies
	err         error
}

func main() {
	path := flag.String("bgen", "", "Filename of the bgen file to process")
	idxPath := flag.String("bgi", "", "Filename of the bgi (index) file to process")
	chrom := flag.String("chromosome", "", "Only process this chromosome")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of workers, each with its own BGEN handle")
	flag.Parse()

	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}

	if *path == "" {
		flag.PrintDefaults()
		log.Fatalln("No bgen file found")
	}
	*path = expandHome(*path)

	if *idxPath == "" {
		*idxPath = *path + ".bgi"
	}
	*idxPath = expandHome(*idxPath)

	bg, err := bgen.Open(*path)
	if err != nil {
		log.Fatalln(err)
	}
	samples, err := bgen.ReadSamples(bg)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("BGEN data: %d variants, %d samples (first %s), %s, %s\n", bg.NVariants, len(samples), firstSample(samples), bg.FlagLayout, bg.FlagCompression)
	bg.Close()

	bgi, err := bgen.OpenBGI(*idxPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer bgi.Close()
	bgi.Metadata.FirstThousandBytes = nil
	log.Printf("BGI Metadata: %+v\n", bgi.Metadata)

	// Prep the workers
	offsets := make(chan bgen.VariantIndex)
	output := make(chan estimate)
	var wg sync.WaitGroup
	log.Println("Launching", *workers, "workers")
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := worker(*path, offsets, output); err != nil {
				log.Fatalf("Worker %d exited: %v\n", workerID, err)
			}
		}(i)
	}

	// The writer sees results in completion order, not index order.
	done := make(chan struct{})
	go func() {
		defer close(done)
		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()
		fmt.Fprintln(out, strings.Join([]string{"rsid", "chrom", "pos", "f0", "f1", "f2", "af"}, "\t"))
		for e := range output {
			if e.err != nil {
				log.Warnln(e.err)
				continue
			}
			g := e.frequencies
			fmt.Fprintf(out, "%s\t%s\t%d\t%g\t%g\t%g\t%g\n", e.row.RSID, e.row.Chromosome, e.row.Position, g[0], g[1], g[2], g.AlleleFrequency())
		}
	}()

	query := "SELECT * FROM Variant ORDER BY chromosome ASC, position ASC"
	var args []interface{}
	if *chrom != "" {
		query = "SELECT * FROM Variant WHERE chromosome = ? ORDER BY position ASC"
		args = append(args, *chrom)
	}
	rows, err := bgi.DB.Queryx(query, args...)
	if err != nil {
		log.Fatalln(err)
	}
	defer rows.Close()

	var row bgen.VariantIndex
	i := 0
	for rows.Next() {
		if i%1000 == 0 {
			log.Println("Processed", i, "variants")
		}
		if err := rows.StructScan(&row); err != nil {
			log.Fatalln(err)
		}

		offsets <- row
		i++
	}
	if err := rows.Err(); err != nil {
		log.Fatalln(err)
	}
	close(offsets)

	wg.Wait()
	close(output)
	<-done

	log.Println("Saw indexes for", i, "variants")
}

// Each worker has to maintain its own VariantReader since its buffers are not
// safe for concurrent reads
func worker(path string, rows <-chan bgen.VariantIndex, output chan<- estimate) error {
	b, err := bgen.Open(path)
	if err != nil {
		return err
	}
	defer b.Close()
	vr := b.NewVariantReader()

	for row := range rows {
		variant := vr.ReadAt(int64(row.FileStartPosition))
		if variant == nil {
			return vr.Error()
		}

		g, err := plem.EstimateSiteFrequency(variant.Site())
		output <- estimate{row: row, frequencies: g, err: err}
	}

	return nil
}

func firstSample(samples []bgen.Sample) string {
	if len(samples) == 0 {
		return "none"
	}
	return samples[0].SampleID
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
