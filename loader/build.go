package loader

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/refseq"
)

// BuildCatalog assembles a validated catalog.Catalog from a segment table
// and one or more allele FASTA files. Callers choose how readers are
// opened.
func BuildCatalog(segmentTable io.Reader, alleleFiles []io.Reader) (*catalog.Catalog, error) {
	rows := LoadSegmentTable(segmentTable)
	for _, af := range alleleFiles {
		LoadAlleles(rows, af)
	}
	return catalog.NewCatalog(rows)
}

// BuildCatalogFromDir loads a conventionally laid out working directory: a
// segment table at "<dir>/tcell_receptor.tsv", allele FASTA files under
// "<dir>/allele/*.fasta", chromosome FASTA files at "<dir>/chr<N>.fa" (or
// "<dir>/chr<N>.fa.gz"), and the recombination probability document at
// "<dir>/tcell_recombination.yaml". This is the loader's one opinionated,
// filesystem-aware entry point; cmd/stig-simulate is its only caller.
func BuildCatalogFromDir(dir string) (*catalog.Catalog, *catalog.ProbabilityModel, refseq.Oracle, error) {
	segmentPath := filepath.Join(dir, "tcell_receptor.tsv")
	segmentFile, err := os.Open(segmentPath)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "loader: open segment table %s", segmentPath)
	}
	defer segmentFile.Close()
	rows := LoadSegmentTable(segmentFile)

	alleleDir := filepath.Join(dir, "allele")
	entries, err := os.ReadDir(alleleDir)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "loader: read allele directory %s", alleleDir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".fasta") {
			continue
		}
		path := filepath.Join(alleleDir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "loader: open allele file %s", path)
		}
		LoadAlleles(rows, f)
		f.Close()
	}

	cat, err := catalog.NewCatalog(rows)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "loader: build catalog")
	}

	oracle, err := registerChromosomes(dir, cat)
	if err != nil {
		return nil, nil, nil, err
	}

	probPath := filepath.Join(dir, "tcell_recombination.yaml")
	probFile, err := os.Open(probPath)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "loader: open probability document %s", probPath)
	}
	defer probFile.Close()
	model, err := LoadProbabilityModel(probFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := model.Validate(); err != nil {
		log.Error.Printf("loader: probability model failed validation: %v", err)
	}

	return cat, model, oracle, nil
}

// registerChromosomes identifies every distinct chromosome number the
// catalog references and registers its reference FASTA with a fresh
// refseq.IndexedFASTA under the "chr<N>.fa" naming convention.
func registerChromosomes(dir string, cat *catalog.Catalog) (refseq.Oracle, error) {
	oracle := refseq.NewIndexedFASTA()
	seen := make(map[int]bool)
	for _, s := range cat.All() {
		if seen[s.ChromosomeNum] {
			continue
		}
		seen[s.ChromosomeNum] = true

		gzPath := filepath.Join(dir, "chr"+strconv.Itoa(s.ChromosomeNum)+".fa.gz")
		if f, err := os.Open(gzPath); err == nil {
			err := oracle.RegisterGzip(s.ChromosomeNum, f)
			f.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "loader: register chromosome %d from %s", s.ChromosomeNum, gzPath)
			}
			continue
		}

		path := filepath.Join(dir, "chr"+strconv.Itoa(s.ChromosomeNum)+".fa")
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "loader: locate reference file for chromosome %d (filename %s)", s.ChromosomeNum, path)
		}
		if err := oracle.Register(s.ChromosomeNum, f); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "loader: register chromosome %d from %s", s.ChromosomeNum, path)
		}
	}
	return oracle, nil
}
