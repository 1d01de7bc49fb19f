package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_FreshStartsAt1001(t *testing.T) {
	l := NewLedger(nil)
	assert.Equal(t, "O1001", l.NextID())
	assert.Equal(t, "O1002", l.NextID())
}

func TestLedger_ResumesAboveLoadedIDs(t *testing.T) {
	l := NewLedger([]*Order{
		{ID: "O1001", Status: StatusDelivered},
		{ID: "O1042", Status: StatusPending},
		{ID: "O1005", Status: StatusCancelled},
	})
	assert.Equal(t, "O1043", l.NextID())
}

func TestLedger_FindNormalizesID(t *testing.T) {
	o := &Order{ID: "O1001", Status: StatusPending}
	l := NewLedger([]*Order{o})

	for _, id := range []string{"O1001", "o1001", "1001", " 1001 "} {
		got, err := l.Find(id)
		require.NoError(t, err, "id %q", id)
		assert.Same(t, o, got)
	}

	_, err := l.Find("O9999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_NextPendingIsOldest(t *testing.T) {
	l := NewLedger([]*Order{
		{ID: "O1001", Status: StatusDelivered},
		{ID: "O1002", Status: StatusPending},
		{ID: "O1003", Status: StatusPending},
	})

	o, ok := l.NextPending()
	require.True(t, ok)
	assert.Equal(t, "O1002", o.ID)
}

func TestLedger_RemoveDelivered(t *testing.T) {
	old := time.Now().AddDate(0, 0, -30)
	l := NewLedger([]*Order{
		{ID: "O1001", Status: StatusDelivered, CreatedAt: old},
		{ID: "O1002", Status: StatusPending, CreatedAt: old},
		{ID: "O1003", Status: StatusDelivered, CreatedAt: time.Now()},
	})

	archived := l.RemoveDelivered(time.Now().AddDate(0, 0, -7))
	require.Len(t, archived, 1)
	assert.Equal(t, "O1001", archived[0].ID)
	assert.Equal(t, 2, l.Len())

	// Archived identifiers are never reused.
	assert.Equal(t, "O1004", l.NextID())

	_, err := l.Find("O1001")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, st)

	_, err = ParseStatus("SHIPPING")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusOutForDelivery.Terminal())
}

func TestItems_EncodeDecode(t *testing.T) {
	items := []Item{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}}
	assert.Equal(t, "P1:2,P2:1", EncodeItems(items))
	assert.Equal(t, items, DecodeItems("P1:2, P2:1"))

	// Malformed pairs and non-positive quantities are dropped.
	assert.Equal(t, []Item{{ProductID: "P1", Quantity: 2}}, DecodeItems("P1:2,broken,P3:0,:4"))
	assert.Empty(t, DecodeItems(""))
}
