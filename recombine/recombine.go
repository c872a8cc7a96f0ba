// Package recombine implements the Recombinator: junction editing, intron
// splicing, and frame/stop/CDR3 validation that turns four segment picks
// into one chain's DNA and RNA records.
package recombine

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/refseq"
)

// RejectReason names why a recombination attempt failed RNA validation.
// Rejections are not fatal: the TCR Cell constructor retries the whole
// chain.
type RejectReason string

const (
	FrameShift    RejectReason = "frame_shift"
	PrematureStop RejectReason = "premature_stop"
	InvalidCDR3   RejectReason = "invalid_cdr3"
)

// ErrReject carries the reason a chain was rejected.
type ErrReject struct {
	Reason RejectReason
}

func (e *ErrReject) Error() string {
	return errors.Errorf("recombine: rejected (%s)", e.Reason).Error()
}

var (
	frameRE = regexp.MustCompile(`^ATG((?:[CTAG]{3})+)$`)
	stopRE  = regexp.MustCompile(`^((?:[CTAG]{3})*)(TAA|TAG|TGA)((?:[CTAG]{3})+)$`)
	cdr3RE  = regexp.MustCompile(`^((?:[CTAG]{3})+)(TG[TC])((?:[CTAG]{3}){5,32})(TT[TC]GG[CTAG][CTAG]{3})GG[CTAG]`)

	nucleotideAlphabet = "CATG"
)

// CDR3 returns the CDR3 nucleotide sequence of an RNA record, or false if
// no valid CDR3 anchor is present. It is the Cys codon plus the
// intervening codons plus the FGxG anchor, excluding the anchor's trailing
// GG[CTAG] codon.
func CDR3(rna string) (string, bool) {
	m := cdr3RE.FindStringSubmatch(rna)
	if m == nil {
		return "", false
	}
	return m[2] + m[3] + m[4], true
}

// Recombinator assembles and validates one chain's DNA/RNA from a
// (V,D?,J,C) choice, given a segment catalog (for sibling gene-unit/exon
// lookups) and a Reference Oracle for genomic reads.
type Recombinator struct {
	cat    *catalog.Catalog
	oracle refseq.Oracle
	model  *catalog.ProbabilityModel
}

func New(cat *catalog.Catalog, model *catalog.ProbabilityModel, oracle refseq.Oracle) *Recombinator {
	return &Recombinator{cat: cat, model: model, oracle: oracle}
}

// hasD reports whether d is a real choice (as opposed to the zero value
// passed for alpha/gamma chains, which have no D segment).
func hasD(d catalog.Choice) bool { return d.Segment.Gene != "" }

// Recombine assembles and validates one chain: segment sequence
// extraction, junction editing, the JC intron read, and the three RNA
// checks. Pass the zero catalog.Choice for d on alpha/gamma chains. On a
// validation failure it returns *ErrReject; the caller retries the whole
// chain from scratch.
func (r *Recombinator) Recombine(rng *rand.Rand, v, d, j, c catalog.Choice) (catalog.Record, catalog.Record, error) {
	chromosome, err := catalog.ParseChromosome(j.Segment.Chromosome)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, errors.Wrap(err, "recombine: J chromosome")
	}

	vDNA, vRNA, err := r.vSegmentSequences(rng, v)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}
	vChew, err := r.roll(rng, catalog.JVchewback)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}
	if vChew > 0 {
		vDNA = trimEnd(vDNA, vChew)
		vRNA = trimEnd(vRNA, vChew)
	}

	dDNA, dRNA, err := r.dOrVJSegmentSequences(rng, d)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}

	jDNA, jRNA := j.Segment.Alleles[j.Allele], j.Segment.Alleles[j.Allele]
	jChew, err := r.roll(rng, catalog.JJchewback)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}
	if jChew > 0 {
		jDNA = trimStart(jDNA, jChew)
		jRNA = trimStart(jRNA, jChew)
	}

	cDNA, cRNA, err := r.cSegmentSequences(c)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}

	jcDNA, err := r.jcIntron(chromosome, j.Segment, c.Segment)
	if err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}

	dnaSeq := vDNA + dDNA + jDNA + jcDNA + cDNA
	rnaSeq := vRNA + dRNA + jRNA + cRNA

	if err := validate(rnaSeq); err != nil {
		return catalog.Record{}, catalog.Record{}, err
	}

	return r.coordinateRecords(chromosome, v.Segment, c.Segment, dnaSeq, rnaSeq, len(cDNA))
}

func validate(rna string) error {
	if !frameRE.MatchString(rna) {
		log.Printf("recombine: frame shift (len mod 3 = %d)", len(rna)%3)
		return &ErrReject{Reason: FrameShift}
	}
	if stopRE.MatchString(rna) {
		log.Printf("recombine: premature stop codon found")
		return &ErrReject{Reason: PrematureStop}
	}
	if _, ok := CDR3(rna); !ok {
		log.Printf("recombine: invalid CDR3 motif")
		return &ErrReject{Reason: InvalidCDR3}
	}
	return nil
}

// roll draws a discrete index from a named junction-length distribution:
// cumulative sum until it exceeds a uniform draw; any leftover probability
// mass implicitly belongs to the last index.
func (r *Recombinator) roll(rng *rand.Rand, key catalog.JunctionKey) (int, error) {
	dist, err := r.model.Junction(key)
	if err != nil {
		return 0, err
	}
	return rollDist(rng, dist), nil
}

func rollDist(rng *rand.Rand, probability []float64) int {
	u := rng.Float64()
	var cum float64
	index := 0
	for i, p := range probability {
		cum += p
		index = i
		if u < cum {
			return index
		}
	}
	return index
}

// randomNucleotides returns k independent uniform draws over {C,A,T,G},
// the untemplated N-addition bases.
func randomNucleotides(rng *rand.Rand, k int) string {
	if k <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(k)
	for i := 0; i < k; i++ {
		b.WriteByte(nucleotideAlphabet[rng.Intn(len(nucleotideAlphabet))])
	}
	return b.String()
}

func trimEnd(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[:len(s)-n]
}

func trimStart(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

// dOrVJSegmentSequences produces the junction block between V and J: for
// beta/delta chains a chewed-back D bracketed by N-additions, for
// alpha/gamma a lone VJ N-addition. Note the chewback naming runs against
// convention and is kept that way deliberately: the trim applied to the D
// segment's *start* uses the D3chewback draw, and the trim applied to its
// *end* uses the D5chewback draw.
func (r *Recombinator) dOrVJSegmentSequences(rng *rand.Rand, d catalog.Choice) (dna, rna string, err error) {
	if !hasD(d) {
		vj, err := r.roll(rng, catalog.JVJaddition)
		if err != nil {
			return "", "", err
		}
		n := randomNucleotides(rng, vj)
		return n, n, nil
	}

	d5, err := r.roll(rng, catalog.JD5chewback)
	if err != nil {
		return "", "", err
	}
	d3, err := r.roll(rng, catalog.JD3chewback)
	if err != nil {
		return "", "", err
	}
	vdLen, err := r.roll(rng, catalog.JVDaddition)
	if err != nil {
		return "", "", err
	}
	djLen, err := r.roll(rng, catalog.JDJaddition)
	if err != nil {
		return "", "", err
	}

	segDNA := d.Segment.Alleles[d.Allele]
	segRNA := segDNA
	if d3 > 0 {
		segDNA = trimStart(segDNA, d3)
		segRNA = trimStart(segRNA, d3)
	}
	if d5 > 0 {
		segDNA = trimEnd(segDNA, d5)
		segRNA = trimEnd(segRNA, d5)
	}
	vd := randomNucleotides(rng, vdLen)
	dj := randomNucleotides(rng, djLen)
	return vd + segDNA + dj, vd + segRNA + dj, nil
}

// vSegmentSequences performs the V-REGION splice: read the sibling
// L-V-GENE-UNIT's genomic span, substitute the V allele into it for DNA,
// and concatenate the sibling L-PART1+L-PART2 allele with the V allele for
// RNA (falling back to a random L-PART allele if this exact allele name is
// missing there).
func (r *Recombinator) vSegmentSequences(rng *rand.Rand, v catalog.Choice) (dna, rna string, err error) {
	geneUnit, ok := r.cat.Lookup(v.Segment.Gene, catalog.RegionLVGeneUnit)
	if !ok {
		return "", "", errors.Errorf("recombine: no L-V-GENE-UNIT for gene %s", v.Segment.Gene)
	}
	lpart, ok := r.cat.Lookup(v.Segment.Gene, catalog.RegionLPart1AndPart2)
	if !ok {
		return "", "", errors.Errorf("recombine: no L-PART1+L-PART2 for gene %s", v.Segment.Gene)
	}

	oracleStrand := refseq.Forward
	if geneUnit.Strand == catalog.StrandReverse {
		oracleStrand = refseq.Reverse
	}
	chromosome, err := catalog.ParseChromosome(geneUnit.Chromosome)
	if err != nil {
		return "", "", err
	}
	geneData, err := r.oracle.Read(chromosome, geneUnit.Start, geneUnit.End, oracleStrand)
	if err != nil {
		return "", "", errors.Wrapf(err, "recombine: read L-V-GENE-UNIT for %s", v.Segment.Gene)
	}

	var headerLen, alleleLen int
	if v.Segment.Strand == catalog.StrandForward {
		headerLen = v.Segment.Start - geneUnit.Start
		alleleLen = v.Segment.End - v.Segment.Start + 1
	} else {
		headerLen = abs(geneUnit.End - v.Segment.End)
		alleleLen = abs(v.Segment.End-v.Segment.Start) + 1
	}
	if headerLen < 0 || headerLen+alleleLen > len(geneData) {
		return "", "", errors.Errorf("recombine: V-REGION splice geometry out of range for gene %s (header=%d allele=%d geneLen=%d)",
			v.Segment.Gene, headerLen, alleleLen, len(geneData))
	}

	vAllele, err := v.Segment.Allele(v.Allele)
	if err != nil {
		return "", "", err
	}
	dnaData := strings.ToUpper(geneData[:headerLen] + vAllele)

	lpartAllele, ok := lpart.Alleles[v.Allele]
	if !ok {
		names := make([]string, 0, len(lpart.Alleles))
		for name := range lpart.Alleles {
			names = append(names, name)
		}
		if len(names) == 0 {
			return "", "", errors.Errorf("recombine: L-PART1+L-PART2 for gene %s has no alleles", v.Segment.Gene)
		}
		lpartAllele = lpart.Alleles[names[rng.Intn(len(names))]]
	}
	rnaData := strings.ToUpper(lpartAllele + vAllele)
	return dnaData, rnaData, nil
}

// cSegmentSequences resolves a C (EX1) pick: DNA is the genomic span from
// min(start) to max(end) across all EX1..EX4 rows for the gene (including
// introns); RNA is the concatenation of the chosen allele of EX1, EX2,
// EX3, EX4 in order (missing exons concatenate empty).
func (r *Recombinator) cSegmentSequences(c catalog.Choice) (dna, rna string, err error) {
	rows := r.cat.Gene(c.Segment.Gene)
	var start, end int
	var ex [4]string
	regionIndex := map[catalog.Region]int{
		catalog.RegionEX1: 0, catalog.RegionEX2: 1, catalog.RegionEX3: 2, catalog.RegionEX4: 3,
	}
	found := false
	for _, row := range rows {
		idx, ok := regionIndex[row.Region]
		if !ok {
			continue
		}
		if !found || row.Start < start {
			start = row.Start
		}
		if !found || row.End > end {
			end = row.End
		}
		found = true
		if allele, ok := row.Alleles[c.Allele]; ok {
			ex[idx] = allele
		}
	}
	if !found {
		return "", "", errors.Errorf("recombine: no EX1..EX4 rows for gene %s", c.Segment.Gene)
	}

	oracleStrand := refseq.Forward
	if c.Segment.Strand == catalog.StrandReverse {
		oracleStrand = refseq.Reverse
	}
	chromosome, err := catalog.ParseChromosome(c.Segment.Chromosome)
	if err != nil {
		return "", "", err
	}
	dnaData, err := r.oracle.Read(chromosome, start, end, oracleStrand)
	if err != nil {
		return "", "", errors.Wrapf(err, "recombine: read C segment for gene %s", c.Segment.Gene)
	}
	rnaData := ex[0] + ex[1] + ex[2] + ex[3]
	return strings.ToUpper(dnaData), strings.ToUpper(rnaData), nil
}

// jcIntron reads the genomic region strictly between J and C, on C's
// strand. It appears in the chain's DNA only; RNA has it spliced out.
func (r *Recombinator) jcIntron(chromosome int, j, c catalog.Segment) (string, error) {
	oracleStrand := refseq.Forward
	if c.Strand == catalog.StrandReverse {
		oracleStrand = refseq.Reverse
	}
	var start, end int
	if j.Strand == catalog.StrandForward {
		start, end = j.End+1, c.Start-1
	} else {
		start, end = c.End+1, j.Start-1
	}
	if start > end {
		return "", nil
	}
	seq, err := r.oracle.Read(chromosome, start, end, oracleStrand)
	if err != nil {
		return "", errors.Wrap(err, "recombine: read JC intron")
	}
	return strings.ToUpper(seq), nil
}

// coordinateRecords attaches genomic coordinates to the assembled
// sequences: the 5' end anchors at the L-V-GENE-UNIT boundary, the 3' end
// at the C segment offset by the C DNA length, both in V/C strand
// orientation.
func (r *Recombinator) coordinateRecords(chromosome int, v, c catalog.Segment, dnaSeq, rnaSeq string, cDNALen int) (catalog.Record, catalog.Record, error) {
	geneUnit, ok := r.cat.Lookup(v.Gene, catalog.RegionLVGeneUnit)
	if !ok {
		return catalog.Record{}, catalog.Record{}, errors.Errorf("recombine: no L-V-GENE-UNIT for gene %s", v.Gene)
	}

	var start5, start3 int
	if v.Strand == catalog.StrandForward {
		start5 = geneUnit.Start
		start3 = c.Start + cDNALen
	} else {
		start5 = geneUnit.End
		start3 = c.End - cDNALen
	}

	dna := catalog.Record{
		Chromosome: chromosome,
		Start5:     start5,
		Strand5:    v.Strand,
		Sequence:   dnaSeq,
		Start3:     start3,
		Strand3:    c.Strand,
	}
	rna := dna
	rna.Sequence = rnaSeq
	return dna, rna, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
