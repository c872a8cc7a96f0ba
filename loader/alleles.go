package loader

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/grailbio/base/log"

	"github.com/vincentlaboratories/stig/catalog"
)

// alleleHeaderRE matches the pipe-delimited IMGT/GENE-DB header's allele
// field, e.g. "TRAV13-1*01".
var alleleHeaderRE = regexp.MustCompile(`^(TR[ABGD](?:[VDJ]\d+(?:-\d+)?|C\d*))\*(\d+)$`)

var alleleRegions = map[string]catalog.Region{
	"V-REGION":        catalog.RegionVRegion,
	"J-REGION":        catalog.RegionJRegion,
	"D-REGION":        catalog.RegionDRegion,
	"EX1":             catalog.RegionEX1,
	"EX2":             catalog.RegionEX2,
	"EX3":             catalog.RegionEX3,
	"EX4":             catalog.RegionEX4,
	"L-PART1+L-PART2": catalog.RegionLPart1AndPart2,
}

// LoadAlleles reads one or more IMGT/GENE-DB FASTA files and populates the
// Alleles map of every matching (gene,region) row found in segments (in
// place). Headers are pipe-delimited 16-field IMGT/GENE-DB headers;
// sequence lines are lowercase over {c,t,a,g} and adjacent sequence lines
// for one record are concatenated; unrecognized regions are skipped with a
// warning.
func LoadAlleles(segments []catalog.Segment, r io.Reader) {
	index := make(map[string]int, len(segments)*2)
	for i, s := range segments {
		index[s.Gene+"\x00"+string(s.Region)] = i
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16*1024*1024)

	var pendingIdx = -1
	var pendingAllele string
	var seqBuilder strings.Builder

	flush := func() {
		if pendingIdx >= 0 && seqBuilder.Len() > 0 {
			if segments[pendingIdx].Alleles == nil {
				segments[pendingIdx].Alleles = make(map[string]string)
			}
			segments[pendingIdx].Alleles[pendingAllele] = strings.ToUpper(seqBuilder.String())
		}
		pendingIdx = -1
		pendingAllele = ""
		seqBuilder.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			fields := strings.Split(line[1:], "|")
			if len(fields) != 16 {
				log.Printf("loader: allele header %q does not have 16 pipe-delimited fields, skipping", line)
				continue
			}
			allele := fields[1]
			region := fields[4]
			m := alleleHeaderRE.FindStringSubmatch(allele)
			if m == nil {
				log.Printf("loader: unsupported gene allele name %q, skipping", allele)
				continue
			}
			gene, alleleName := m[1], m[2]
			targetRegion, ok := alleleRegions[region]
			if !ok {
				log.Printf("loader: unsupported gene region %q in allele %s, skipping", region, allele)
				continue
			}
			idx, ok := index[gene+"\x00"+string(targetRegion)]
			if !ok {
				log.Printf("loader: no corresponding segment row for %s of %s*%s, skipping", region, gene, alleleName)
				continue
			}
			pendingIdx = idx
			pendingAllele = alleleName
			continue
		}
		if pendingIdx < 0 {
			continue
		}
		seqBuilder.WriteString(strings.ToLower(line))
	}
	flush()
	if err := scanner.Err(); err != nil {
		log.Error.Printf("loader: allele fasta: %v", err)
	}
}
