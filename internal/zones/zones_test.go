package zones

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = "\ufeffROW ID,STATUS,ZONE,ODD_EVEN,ADDRESS RANGE - LOW,ADDRESS RANGE - HIGH,STREET DIRECTION,STREET NAME,STREET TYPE,BUFFER\n" +
	"1,ACTIVE,143,O,100,199,N,STATE,ST,N\n" +
	"2,ACTIVE,143,E,100,198,N,STATE,ST,N\n" +
	"3,INACTIVE,62,O,2000,2099,W,ARMITAGE,AVE,N\n" +
	"4,ACTIVE,383,E,1200,1298,W,ARMITAGE,AVE,N\n" +
	"5,ACTIVE,62,O,2000,2099,W,ARMITAGE,AVE,N\n"

func TestRead(t *testing.T) {
	rows, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, Row{
		Zone: "143", Status: "ACTIVE", OddEven: "O", AddressLow: "100", AddressHigh: "199",
		Direction: "N", Name: "STATE", Type: "ST",
	}, rows[0])
	assert.Equal(t, "N|STATE|ST|100|199", rows[0].ID())
	assert.Equal(t, "N STATE ST", rows[0].Segment().Street())
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("ZONE,STATUS\n1,ACTIVE\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestActiveSegments(t *testing.T) {
	rows, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	segs := ActiveSegments(rows)
	require.Len(t, segs, 2)
	assert.Equal(t, "143", segs[0].Zone)
	assert.Equal(t, "O", segs[0].OddEven)
	// the inactive row is skipped, so the first active Armitage row wins
	assert.Equal(t, "383", segs[1].Zone)
}
