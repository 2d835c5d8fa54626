package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
)

func TestNewDiagnosticClassifiesWarningKinds(t *testing.T) {
	for _, kind := range []cosmorunerr.Kind{
		cosmorunerr.KindIncludeNotFound,
		cosmorunerr.KindDuplicateSymbol,
		cosmorunerr.KindSymbolNotFound,
	} {
		d := NewDiagnostic(kind, "a.c", 1, "x")
		require.Equal(t, SeverityWarning, d.Severity, kind.String())
	}
}

func TestNewDiagnosticClassifiesErrorKinds(t *testing.T) {
	for _, kind := range []cosmorunerr.Kind{
		cosmorunerr.KindParse,
		cosmorunerr.KindRelocationOverflow,
		cosmorunerr.KindJITAlloc,
	} {
		d := NewDiagnostic(kind, "a.c", 1, "x")
		require.Equal(t, SeverityError, d.Severity, kind.String())
	}
}
