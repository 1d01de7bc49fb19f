package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTrail_RecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.txt")
	tr := NewTrail(path, zap.NewNop())

	tr.Record("O1001", "INTAKE", "OK", "Order created")
	tr.Record("O1002", "PAYMENT", "FAIL", "payment declined")
	tr.Record("O1001", "STATUS", "OK", "Status changed to PACKED")

	entries, err := tr.ByOrder("O1001")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "INTAKE", entries[0].Step)
	assert.Equal(t, "STATUS", entries[1].Step)
	assert.Equal(t, tr.Session(), entries[0].Session)
	assert.Equal(t, "Order created", entries[0].Message)
	assert.WithinDuration(t, time.Now(), entries[0].Time, time.Minute)
}

func TestTrail_MissingFileYieldsNoEntries(t *testing.T) {
	tr := NewTrail(filepath.Join(t.TempDir(), "missing.txt"), zap.NewNop())

	entries, err := tr.ByOrder("O1001")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrail_WriteFailureIsSwallowed(t *testing.T) {
	// The trail path is a directory: every write fails, none may panic or
	// propagate.
	tr := NewTrail(t.TempDir(), zap.NewNop())
	tr.Record("O1001", "INTAKE", "OK", "Order created")
}

func TestTrail_SessionsAreDistinct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.txt")
	tr1 := NewTrail(path, zap.NewNop())
	tr2 := NewTrail(path, zap.NewNop())

	assert.NotEqual(t, tr1.Session(), tr2.Session())

	tr1.Record("O1001", "INTAKE", "OK", "first session")
	tr2.Record("O1001", "RETRY", "OK", "second session")

	entries, err := tr1.ByOrder("O1001")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Session, entries[1].Session)
}
