package pdf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutora/billing-engine/pdf"
)

// =============================================================================
// PATH CONTAINMENT
// =============================================================================

func TestOpenFile_RelativeBaseAcceptsInTreePath(t *testing.T) {
	// GIVEN: a relative base dir, as the default -out flag produces
	// WHEN: Opening a path under that dir that does not exist
	// THEN: The containment check passes and the failure is the missing
	//       file, not an access denial

	err := pdf.OpenFile("invoices", filepath.Join("invoices", "2025", "09", "LS-2025-0001.pdf"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected a not-exist error, got: %v", err)
}

func TestOpenFile_RejectsTraversalOutOfBase(t *testing.T) {
	// A candidate that climbs out of the base dir is denied before any
	// filesystem access.

	err := pdf.OpenFile("invoices", filepath.Join("invoices", "..", "secrets.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestOpenFile_RejectsSiblingWithBasePrefix(t *testing.T) {
	// "invoices-archive" shares a string prefix with "invoices" but is a
	// sibling dir, not a child.

	err := pdf.OpenFile("invoices", filepath.Join("invoices-archive", "x.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestOpenFile_AbsoluteBaseRejectsOutsidePath(t *testing.T) {
	base := t.TempDir()

	err := pdf.OpenFile(base, filepath.Join(os.TempDir(), "elsewhere.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
