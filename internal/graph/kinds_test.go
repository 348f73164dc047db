package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeKindRoundTrip(t *testing.T) {
	for k := NodeKindUnknown; k <= NodeKindEnumConstant; k++ {
		got, err := ParseNodeKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
}

func TestEdgeKindRoundTrip(t *testing.T) {
	for k := EdgeKindUnknown; k <= EdgeKindAnnotationUsage; k++ {
		got, err := ParseEdgeKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
}

func TestOccurrenceKindRoundTrip(t *testing.T) {
	for k := OccurrenceKindUnknown; k <= OccurrenceKindCallsite; k++ {
		got, err := ParseOccurrenceKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
}

func TestCertaintyRoundTrip(t *testing.T) {
	for c := CertaintyUnknown; c <= CertaintyCertain; c++ {
		got, err := ParseCertainty(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestParseNodeKindRejectsUnknown(t *testing.T) {
	_, err := ParseNodeKind("NOT_A_REAL_KIND")
	require.Error(t, err)
}

func TestFNV1a64Deterministic(t *testing.T) {
	require.Equal(t, FNV1a64("a:b:c"), FNV1a64("a:b:c"))
	require.NotEqual(t, FNV1a64("a:b:c"), FNV1a64("a:b:d"))
}

func TestNewEdgeIDDeterministic(t *testing.T) {
	a, b := NodeID(1), NodeID(2)
	id1 := NewEdgeID(a, b, EdgeKindCall)
	id2 := NewEdgeID(a, b, EdgeKindCall)
	require.Equal(t, id1, id2)

	id3 := NewEdgeID(a, b, EdgeKindImport)
	require.NotEqual(t, id1, id3)
}

func TestCertaintyWeaker(t *testing.T) {
	require.True(t, CertaintyCertain.Weaker(CertaintyUncertain))
	require.False(t, CertaintyUncertain.Weaker(CertaintyCertain))
}
