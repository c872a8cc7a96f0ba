// Package loader parses the simulator's external inputs: the tab-separated
// segment table, IMGT/GENE-DB allele FASTA files, the recombination
// probability document, and chromosome FASTA registration. It is a
// best-effort, warn-and-skip layer around the strict catalog and refseq
// packages.
package loader

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/vincentlaboratories/stig/catalog"
)

var coordinatesRE = regexp.MustCompile(`^(\d+)\.\.(\d+)$`)

var validRegions = map[catalog.Region]bool{
	catalog.RegionVRegion:        true,
	catalog.RegionDRegion:        true,
	catalog.RegionJRegion:        true,
	catalog.RegionVGeneUnit:      true,
	catalog.RegionDGeneUnit:      true,
	catalog.RegionJGeneUnit:      true,
	catalog.RegionLVGeneUnit:     true,
	catalog.RegionLPart1AndPart2: true,
	catalog.RegionEX1:            true,
	catalog.RegionEX2:            true,
	catalog.RegionEX3:            true,
	catalog.RegionEX4:            true,
}

// LoadSegmentTable parses a tab-separated segment table: 15 fields per
// row, comment/blank lines ignored, trailing "#..." comments stripped.
// Fields used by position (1-based): 1 gene, 2 chromosome, 3 strand, 9
// region, 14 coordinates "start..end". A row failing any field validator
// is warned and skipped, never fatal -- only NewCatalog's downstream
// uniqueness check is fatal.
func LoadSegmentTable(r io.Reader) []catalog.Segment {
	var rows []catalog.Segment
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 15 {
			log.Printf("loader: segment table line %d: expected 15 tab-separated fields, got %d, skipping", lineNumber, len(fields))
			continue
		}
		seg, err := parseSegmentRow(fields)
		if err != nil {
			log.Printf("loader: segment table line %d: %v, skipping", lineNumber, err)
			continue
		}
		rows = append(rows, seg)
	}
	if err := scanner.Err(); err != nil {
		log.Error.Printf("loader: segment table: %v", err)
	}
	return rows
}

func parseSegmentRow(fields []string) (catalog.Segment, error) {
	gene := fields[0]
	chromosome := fields[1]
	strandField := fields[2]
	region := fields[8]
	coordinates := fields[13]

	receptorType, segType, segmentNumber, err := catalog.ParseGene(gene)
	if err != nil {
		return catalog.Segment{}, err
	}
	chromosomeNum, err := catalog.ParseChromosome(chromosome)
	if err != nil {
		return catalog.Segment{}, err
	}
	strand, err := catalog.ParseStrandString(strandField)
	if err != nil {
		return catalog.Segment{}, err
	}
	if !validRegions[catalog.Region(region)] {
		return catalog.Segment{}, errors.Errorf("invalid region %q", region)
	}
	m := coordinatesRE.FindStringSubmatch(coordinates)
	if m == nil {
		return catalog.Segment{}, errors.Errorf("invalid coordinates %q (want start..end)", coordinates)
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return catalog.Segment{}, errors.Wrap(err, "coordinates")
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return catalog.Segment{}, errors.Wrap(err, "coordinates")
	}

	return catalog.Segment{
		Gene:          gene,
		ReceptorType:  receptorType,
		SegType:       segType,
		SegmentNumber: segmentNumber,
		Region:        catalog.Region(region),
		Chromosome:    chromosome,
		ChromosomeNum: chromosomeNum,
		Strand:        strand,
		Start:         start,
		End:           end,
		Alleles:       make(map[string]string),
	}, nil
}
