package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopdoor/automation"
	"coopdoor/door"
	"coopdoor/store"
	"coopdoor/sun"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		pkt  string
		want Command
	}{
		{"empty", "", Command{}},
		{"code only", "h", Command{Code: 'h'}},
		{"single digit", "21", Command{Code: '2', Arg: 1, HasArg: true}},
		{"three digits", "6200", Command{Code: '6', Arg: 200, HasArg: true}},
		{"extra bytes ignored", "81234", Command{Code: '8', Arg: 123, HasArg: true}},
		{"trailing newline", "01\n", Command{Code: '0', Arg: 1, HasArg: true}},
		{"max value", "7255", Command{Code: '7', Arg: 255, HasArg: true}},
		{"leading space", "2 1", Command{Code: '2', Arg: 1, HasArg: true}},
		{"leading spaces clip after skip", "8  150", Command{Code: '8', Arg: 150, HasArg: true}},
		{"whitespace only", "2\r\n", Command{Code: '2'}},
		{"help newline", "h\n", Command{Code: 'h'}},
		{"reset crlf", "f\r\n", Command{Code: 'f'}},
		{"force open newline", "o\n", Command{Code: 'o'}},
		{"clear delay newline", "a\n", Command{Code: 'a'}},
		{"restart newline", "r\n", Command{Code: 'r'}},
		{"no-arg code ignores trailer", "cx", Command{Code: 'c'}},
		{"unknown code ignores trailer", "z9x", Command{Code: 'z'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.pkt))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_BadArgument(t *testing.T) {
	for _, pkt := range []string{"7256", "4999", "5x", "2 x", "l\tx"} {
		_, err := Parse([]byte(pkt))
		assert.True(t, errors.Is(err, ErrRejected), pkt)
	}
}

type call struct {
	name string
	arg  any
}

type recorder struct {
	calls []call
}

func (r *recorder) rec(name string, arg any) { r.calls = append(r.calls, call{name, arg}) }

func (r *recorder) SetAutomation(on bool) bool { r.rec("automation", on); return on }
func (r *recorder) MoveDoor(dir door.Direction) (bool, error) {
	r.rec("move", dir)
	return true, nil
}
func (r *recorder) SetTopPosition(v byte) byte { r.rec("top", v); return v }
func (r *recorder) SetLowerThreshold(v byte) byte { r.rec("lower", v); return v }
func (r *recorder) SetUpperThreshold(v byte) byte { r.rec("upper", v); return v }
func (r *recorder) SetDeviceID(v byte) store.DeviceID { r.rec("id", v); return store.DeviceID(v) }
func (r *recorder) SetOffsetCode(v byte) byte { r.rec("offset", v); return v }
func (r *recorder) ClearAutomationDelay() { r.rec("clear_delay", nil) }
func (r *recorder) SetPositionSaved(on bool) bool { r.rec("position_saved", on); return on }
func (r *recorder) SetMoveTime(v byte) byte { r.rec("move_time", v); return v }
func (r *recorder) FactoryReset() error { r.rec("reset", nil); return nil }
func (r *recorder) ForceOpen() { r.rec("force_open", nil) }
func (r *recorder) ForceClosed() { r.rec("force_closed", nil) }
func (r *recorder) SetLDR(on bool) bool { r.rec("ldr", on); return on }
func (r *recorder) SetTimeEnabled(on bool) bool { r.rec("time", on); return on }
func (r *recorder) Restart() { r.rec("restart", nil) }

func TestDispatch_Table(t *testing.T) {
	tests := []struct {
		pkt  string
		want call
	}{
		{"01", call{"automation", true}},
		{"00", call{"automation", false}},
		{"21", call{"move", door.Open}},
		{"20", call{"move", door.Close}},
		{"412", call{"top", byte(12)}},
		{"520", call{"lower", byte(20)}},
		{"640", call{"upper", byte(40)}},
		{"79", call{"id", byte(9)}},
		{"8150", call{"offset", byte(150)}},
		{"a", call{"clear_delay", nil}},
		{"m0", call{"position_saved", false}},
		{"n0", call{"move_time", byte(0)}},
		{"f", call{"reset", nil}},
		{"o", call{"force_open", nil}},
		{"c", call{"force_closed", nil}},
		{"l1", call{"ldr", true}},
		{"t0", call{"time", false}},
		{"r", call{"restart", nil}},
	}

	for _, tt := range tests {
		t.Run(tt.pkt, func(t *testing.T) {
			cmd, err := Parse([]byte(tt.pkt))
			require.NoError(t, err)

			r := &recorder{}
			reply, err := Dispatch(r, cmd)
			require.NoError(t, err)
			assert.Empty(t, reply)
			assert.Equal(t, []call{tt.want}, r.calls)
		})
	}
}

func TestDispatch_Rejections(t *testing.T) {
	for _, pkt := range []string{"", "z", "1", "11", "p", "d", "9", "2", "m", "4"} {
		cmd, err := Parse([]byte(pkt))
		require.NoError(t, err)

		r := &recorder{}
		_, err = Dispatch(r, cmd)
		assert.True(t, errors.Is(err, ErrRejected), "packet %q", pkt)
		assert.Empty(t, r.calls, "packet %q", pkt)
	}
}

func TestDispatch_Help(t *testing.T) {
	r := &recorder{}
	reply, err := Dispatch(r, Command{Code: 'h'})
	require.NoError(t, err)
	assert.Equal(t, HelpText, reply)
	assert.Empty(t, r.calls)

	assert.True(t, strings.HasPrefix(HelpText, "0 [1:0]=Automation on\n2 [1:0]=MV Door\n"))
	assert.Contains(t, HelpText, "\na=Disable Automation delay\n")
	assert.Equal(t, len(handlers), strings.Count(HelpText, "\n"))
}

func TestTakesArg(t *testing.T) {
	assert.True(t, TakesArg('2'))
	assert.False(t, TakesArg('o'))
	assert.False(t, TakesArg('z'))
}

func TestStatus_String(t *testing.T) {
	cfg := store.Defaults(7)
	cfg.OffsetCode = 150

	s := NewStatus(&cfg, automation.StateClosed, 30, sun.Schedule{Open: 420, Close: 1080})
	assert.Equal(t,
		"!ID=7,STATE=0,MTR_POS=0,TOPPOS=10,UL=37,LL=25,LIT=30,AUTO=1,LDR=0,TIME=1,MTRSAVE=1,MTRTIME=75,CLOSE=1080,OPEN=420,MOFF=300",
		s.String())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "21", Command{Code: '2', Arg: 1, HasArg: true}.String())
	assert.Equal(t, "h", Command{Code: 'h'}.String())
	assert.Equal(t, "<none>", Command{}.String())
}
