package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"

	"coopdoor/automation"
	"coopdoor/door"
	"coopdoor/protocol"
)

var ts = time.Unix(1700000000, 0)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(Config{}, nil)
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestStatusPoint(t *testing.T) {
	p := statusPoint(protocol.Status{
		ID:          7,
		State:       automation.StateOpen,
		Position:    10,
		TopPosition: 10,
		Light:       42,
		OpenMinute:  420,
		CloseMinute: 1080,
	}, ts)

	assert.Equal(t,
		"door_status,door_id=7 close_min=1080i,light=42i,open_min=420i,position=10i,state=1i,top=10i 1700000000\n",
		write.PointToLineProtocol(p, time.Second))
}

func TestMovePoint(t *testing.T) {
	p := movePoint(3, door.Close, true, ts)
	assert.Equal(t,
		"door_move,direction=close,door_id=3,source=automation count=1i 1700000000\n",
		write.PointToLineProtocol(p, time.Second))
}

func TestRecord_NotConnectedIsNoop(t *testing.T) {
	c := &Client{}
	assert.False(t, c.IsConnected())
	c.RecordStatus(protocol.Status{})
	c.RecordMove(1, door.Open, false)
	assert.NoError(t, c.Close())
}
