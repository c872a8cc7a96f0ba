package refseq

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// chromEntry describes the fixed-width-line geometry of one chromosome's
// FASTA representation, so that Read can compute a byte offset directly
// instead of scanning.
type chromEntry struct {
	reader    io.ReaderAt
	headerLen int64 // bytes in the header line, including its newline
	lineBases int64 // nucleotides per sequence line
	lineBytes int64 // bytes per sequence line, including its newline
	length    int64 // total sequence length in bases, if known; 0 if unknown
	mu        sync.Mutex
}

// IndexedFASTA is an Oracle backed by one fixed-width-line FASTA file per
// registered chromosome. It performs true random access: each Read
// computes a byte offset from the registered line geometry and seeks
// directly.
type IndexedFASTA struct {
	mu    sync.RWMutex
	chrom map[int]*chromEntry
}

// NewIndexedFASTA returns an empty IndexedFASTA with no chromosomes
// registered. Use Register or RegisterGzip to add chromosomes.
func NewIndexedFASTA() *IndexedFASTA {
	return &IndexedFASTA{chrom: make(map[int]*chromEntry)}
}

// Register adds a chromosome backed by r, a fixed-width-line FASTA
// containing a single header line followed by sequence lines of uniform
// width (the last line may be shorter). Line width is measured from the
// second line, minus its newline.
//
// r must implement io.ReaderAt for random access; pass *os.File or
// bytes.NewReader(buf) (the latter for in-memory or decompressed data).
func (f *IndexedFASTA) Register(chromosome int, r io.ReaderAt) error {
	entry, err := newChromEntry(r)
	if err != nil {
		return errors.Wrapf(err, "refseq: register chromosome %d", chromosome)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chrom[chromosome] = entry
	return nil
}

// RegisterGzip decompresses a gzip-compressed fixed-width-line FASTA fully
// into memory and registers it. This is not true random access into the
// compressed stream (gzip is a sequential format); that would need a
// bgzf-indexed file.
func (f *IndexedFASTA) RegisterGzip(chromosome int, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrapf(err, "refseq: gzip chromosome %d", chromosome)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		return errors.Wrapf(err, "refseq: decompress chromosome %d", chromosome)
	}
	return f.Register(chromosome, bytes.NewReader(data))
}

func newChromEntry(r io.ReaderAt) (*chromEntry, error) {
	// Header and first sequence line are always small; a 1MiB section is
	// generously sized for sniffing geometry without reading the whole
	// chromosome.
	sniff := io.NewSectionReader(r, 0, 1<<20)
	br := bufio.NewReader(sniff)

	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read header line")
	}
	if !strings.HasPrefix(header, ">") {
		return nil, errors.Errorf("missing FASTA header ('>') line")
	}
	if !strings.HasSuffix(header, "\n") {
		return nil, errors.Errorf("FASTA file has only a header line")
	}

	line2, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read first sequence line")
	}
	trimmed := strings.TrimRight(line2, "\n")
	if len(trimmed) == 0 {
		return nil, errors.Errorf("empty first sequence line")
	}

	return &chromEntry{
		reader:    r,
		headerLen: int64(len(header)),
		lineBases: int64(len(trimmed)),
		lineBytes: int64(len(line2)),
	}, nil
}

// Read implements Oracle.Read.
func (f *IndexedFASTA) Read(chromosome int, start, end int, strand Strand) (string, error) {
	if start < 1 || end < start {
		return "", &ErrInvalidRange{Chromosome: chromosome, Start: start, End: end, Reason: "require 1 <= start <= end"}
	}
	f.mu.RLock()
	entry, ok := f.chrom[chromosome]
	f.mu.RUnlock()
	if !ok {
		return "", &ErrUninitializedChromosome{Chromosome: chromosome}
	}

	entry.mu.Lock()
	seq, err := entry.readRange(int64(start-1), int64(end)) // convert to 0-based half-open
	entry.mu.Unlock()
	if err != nil {
		return "", errors.Wrapf(err, "refseq: read chromosome %d [%d,%d]", chromosome, start, end)
	}
	seq = strings.ToUpper(seq)
	if strand == Reverse {
		seq = ReverseComplement(seq)
	}
	return seq, nil
}

// readRange returns the 0-based half-open span [start, end) of bases,
// stripping embedded newlines.
func (e *chromEntry) readRange(start, end int64) (string, error) {
	if e.length > 0 && end > e.length {
		return "", errors.Errorf("end %d past end of chromosome (length %d)", end, e.length)
	}
	charsPerNewline := e.lineBytes - e.lineBases
	offset := e.headerLen + start + charsPerNewline*(start/e.lineBases)

	firstLineBases := e.lineBases - (start % e.lineBases)
	var newlinesToRead int64
	if end-start > firstLineBases {
		newlinesToRead = 1 + (end-start-firstLineBases)/e.lineBases
	}
	capacity := end - start + newlinesToRead*charsPerNewline

	buf := make([]byte, capacity)
	n, err := e.reader.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return "", err
	}
	buf = buf[:n]
	if int64(n) < capacity {
		return "", errors.Errorf("unexpected end of file (bad geometry, or file doesn't end in newline)")
	}

	out := make([]byte, 0, end-start)
	linePos := (offset - e.headerLen) % e.lineBytes
	for _, b := range buf {
		if linePos < e.lineBases {
			out = append(out, b)
		}
		linePos++
		if linePos == e.lineBytes {
			linePos = 0
		}
	}
	return string(out), nil
}
