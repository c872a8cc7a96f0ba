// stig-simulate is a thin CLI wrapper around the simulator core: it loads
// a working directory via the loader package, builds and populates a
// repertoire, and emits clone statistics plus simulated reads.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/vincentlaboratories/stig/chooser"
	"github.com/vincentlaboratories/stig/loader"
	"github.com/vincentlaboratories/stig/population"
	"github.com/vincentlaboratories/stig/reads"
	"github.com/vincentlaboratories/stig/recombine"
	"github.com/vincentlaboratories/stig/tcr"
)

var (
	workDir       = flag.String("workdir", "", "Directory holding tcell_receptor.tsv, allele/*.fasta, chr<N>.fa[.gz], tcell_recombination.yaml")
	outPrefix     = flag.String("out", "stig", "Output path prefix")
	seed          = flag.Int64("seed", 1, "PRNG seed; fixing it makes a run reproducible")
	repertoireN   = flag.Int("repertoire-size", 100, "Number of distinct clones to generate")
	abFrequency   = flag.Float64("ab-frequency", 0.95, "Probability a generated cell is alpha/beta rather than gamma/delta")
	uniqueMode    = flag.String("unique", "", "One of (empty), cdr3, chain, tcr -- the Repertoire uniqueness constraint")
	populationN   = flag.Int("population-size", 1000, "Total cell count distributed across repertoire-size clones")
	distribution  = flag.String("distribution", "stripe", "Population distribution: stripe, equal, unimodal, chisquare, logisticcdf")
	gCutoff       = flag.Float64("unimodal-cutoff", 3, "unimodal distribution's g_cutoff")
	csK           = flag.Float64("chisquare-k", 2, "chisquare distribution's degrees of freedom")
	csCutoff      = flag.Float64("chisquare-cutoff", 10, "chisquare distribution's cutoff")
	lScale        = flag.Float64("logisticcdf-scale", 1, "logisticcdf distribution's scale")
	lCutoff       = flag.Float64("logisticcdf-cutoff", 5, "logisticcdf distribution's cutoff")
	readCount     = flag.Int("read-count", 1000, "Number of reads to emit")
	readSpace     = flag.String("read-space", "dna", "dna or rna")
	readType      = flag.String("read-type", "single", "single, paired, or amplicon")
	readMean      = flag.Float64("read-length-mean", 100, "Read length gaussian mean")
	readSD        = flag.Float64("read-length-sd", 0, "Read length gaussian standard deviation (0 = fixed length)")
	readCutoff    = flag.Float64("read-length-cutoff", 3, "Read length gaussian rejection cutoff, in standard deviations")
	insertMean    = flag.Float64("insert-length-mean", 300, "Paired-read insert length gaussian mean")
	insertSD      = flag.Float64("insert-length-sd", 0, "Paired-read insert length gaussian standard deviation")
	insertCutoff  = flag.Float64("insert-length-cutoff", 3, "Paired-read insert length gaussian rejection cutoff")
	ampliconProbe = flag.String("amplicon-probe", "", "Amplicon probe sequence; empty uses the built-in default")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -workdir DIR [OPTIONS]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *workDir == "" {
		log.Panicf("stig-simulate: -workdir is required")
	}

	cat, model, oracle, err := loader.BuildCatalogFromDir(*workDir)
	if err != nil {
		log.Panicf("stig-simulate: loading working directory %s: %v", *workDir, err)
	}

	rng := rand.New(rand.NewSource(*seed))
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)

	var uniqueCDR3, uniqueChain, uniqueTCR bool
	switch *uniqueMode {
	case "":
	case "cdr3":
		uniqueCDR3 = true
	case "chain":
		uniqueChain = true
	case "tcr":
		uniqueTCR = true
	default:
		log.Panicf("stig-simulate: -unique must be one of (empty), cdr3, chain, tcr; got %q", *uniqueMode)
	}

	log.Printf("stig-simulate: generating repertoire of %d clones", *repertoireN)
	rep := tcr.NewRepertoire(rng, ch, rc, *repertoireN, *abFrequency, uniqueCDR3, uniqueChain, uniqueTCR)

	counts, err := population.Distribute(rng, population.Distribution(*distribution), *repertoireN, *populationN, population.Params{
		GCutoff:    *gCutoff,
		ChiSquareK: *csK,
		CSCutoff:   *csCutoff,
		LScale:     *lScale,
		LCutoff:    *lCutoff,
	})
	if err != nil {
		log.Panicf("stig-simulate: population distribution: %v", err)
	}

	statsPath := *outPrefix + ".stats.tsv"
	statsFile, err := os.Create(statsPath)
	if err != nil {
		log.Panicf("stig-simulate: creating %s: %v", statsPath, err)
	}
	if err := rep.WriteStatistics(statsFile, counts); err != nil {
		log.Panicf("stig-simulate: writing clone statistics: %v", err)
	}
	statsFile.Close()
	log.Printf("stig-simulate: wrote clone statistics to %s", statsPath)

	out, err := reads.Simulate(rng, oracle, rep, counts, reads.Params{
		Count:         *readCount,
		Space:         reads.Space(*readSpace),
		ReadType:      reads.ReadType(*readType),
		ReadLength:    reads.LengthParams{Mean: *readMean, SD: *readSD, SDCutoff: *readCutoff},
		InsertLength:  reads.LengthParams{Mean: *insertMean, SD: *insertSD, SDCutoff: *insertCutoff},
		AmpliconProbe: *ampliconProbe,
	})
	if err != nil {
		log.Panicf("stig-simulate: read simulation: %v", err)
	}
	if err := writeReads(*outPrefix, reads.ReadType(*readType), out); err != nil {
		log.Panicf("stig-simulate: writing reads: %v", err)
	}
	log.Printf("stig-simulate: emitted %d reads", len(out))
}

// writeReads emits single reads as one FASTA-like file and paired/amplicon
// reads as two mate files.
func writeReads(prefix string, rt reads.ReadType, out []reads.Read) error {
	if rt == reads.Single {
		f, err := os.Create(prefix + ".reads.fasta")
		if err != nil {
			return err
		}
		defer f.Close()
		for i, r := range out {
			fmt.Fprintf(f, ">%s\n%s\n", readComment(r, i), r.Sequences[0])
		}
		return nil
	}

	f1, err := os.Create(prefix + ".reads_1.fasta")
	if err != nil {
		return err
	}
	defer f1.Close()
	f2, err := os.Create(prefix + ".reads_2.fasta")
	if err != nil {
		return err
	}
	defer f2.Close()
	for i, r := range out {
		comment := readComment(r, i)
		fmt.Fprintf(f1, ">%s\n%s\n", comment, r.Sequences[0])
		fmt.Fprintf(f2, ">%s\n%s\n", comment, r.Sequences[1])
	}
	return nil
}

func readComment(r reads.Read, i int) string {
	if r.Comment != "" {
		return r.Comment
	}
	return fmt.Sprintf("read%d", i)
}
