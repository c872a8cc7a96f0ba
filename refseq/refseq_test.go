package refseq_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/refseq"
)

func TestReverseComplementInvolution(t *testing.T) {
	cases := []string{"ACGTTGCA", "A", "", "ACGTN", "acgt"}
	for _, s := range cases {
		rc := refseq.ReverseComplement(s)
		require.Equal(t, s, refseq.ReverseComplement(rc), "involution failed for %q", s)
	}
	require.Equal(t, "TGCAACGT", refseq.ReverseComplement("ACGTTGCA"))
}

func TestIndexedFASTARead(t *testing.T) {
	// header of length 6 ("chr7\n"... use >c7\n = 4 bytes, make header len 6 with ">chr7\n")
	header := ">chr7\n" // 6 bytes
	require.Equal(t, 6, len(header))
	line := "ACGTACGTAC" // 10 bases per line
	data := header + line + "\n" + "GGGGGGGGGG" + "\n" + "TT" + "\n"

	f := refseq.NewIndexedFASTA()
	require.NoError(t, f.Register(7, bytes.NewReader([]byte(data))))

	seq, err := f.Read(7, 1, 10, refseq.Forward)
	require.NoError(t, err)
	require.Equal(t, "ACGTACGTAC", seq)

	seq, err = f.Read(7, 11, 20, refseq.Forward)
	require.NoError(t, err)
	require.Equal(t, "GGGGGGGGGG", seq)

	seq, err = f.Read(7, 9, 13, refseq.Forward)
	require.NoError(t, err)
	require.Equal(t, "ACGGG", seq)

	seq, err = f.Read(7, 21, 22, refseq.Forward)
	require.NoError(t, err)
	require.Equal(t, "TT", seq)

	seq, err = f.Read(7, 1, 4, refseq.Reverse)
	require.NoError(t, err)
	require.Equal(t, refseq.ReverseComplement("ACGT"), seq)

	_, err = f.Read(9, 1, 1, refseq.Forward)
	require.Error(t, err)
	var uninit *refseq.ErrUninitializedChromosome
	require.ErrorAs(t, err, &uninit)

	_, err = f.Read(7, 5, 4, refseq.Forward)
	require.Error(t, err)
}

func TestInMemoryOracle(t *testing.T) {
	o := refseq.NewInMemoryOracle(map[int]string{14: "acgttgca"})
	seq, err := o.Read(14, 1, 4, refseq.Forward)
	require.NoError(t, err)
	require.Equal(t, "ACGT", seq)

	seq, err = o.Read(14, 1, 4, refseq.Reverse)
	require.NoError(t, err)
	require.Equal(t, refseq.ReverseComplement("ACGT"), seq)
}
