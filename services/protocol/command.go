// Package protocol implements the line protocol spoken over the serial link:
// JSON-shaped commands in, JSON-shaped responses and telemetry out.
//
//	{"cmd":"get_config"}
//	{"cmd":"set_intensity","value":0.5}
//	{"cmd":"set_readout_period","value":2000}
//
// Parsing is deliberately minimal: the object must start with {"cmd": and an
// optional "value" number is read wherever it appears.
package protocol

import (
	"bytes"

	"aircube-go/errcode"
	"aircube-go/x/conv"
)

// Command names.
const (
	CmdGetConfig        = "get_config"
	CmdSetIntensity     = "set_intensity"
	CmdSetReadoutPeriod = "set_readout_period"
)

const (
	minLen     = 10
	maxNameLen = 31
)

var (
	prefix   = []byte(`{"cmd":`)
	cmdKey   = []byte(`"cmd":"`)
	valueKey = []byte(`"value":`)
)

// Error messages sent back in {"status":"error","msg":...}.
const (
	MsgInvalidCommand = "invalid command"
	MsgUnknownCommand = "unknown command"
	MsgMissingValue   = "missing value field"
	MsgInvalidValue   = "invalid value field"
	MsgBusy           = "busy"
)

// Command is one parsed request.
type Command struct {
	Name     string
	Value    float64
	HasValue bool
}

// Parse extracts the command name and optional value. Malformed input returns
// an errcode.ProtocolError whose message is suitable for the error response.
func Parse(line []byte) (Command, error) {
	var c Command
	if len(line) < minLen || !bytes.HasPrefix(line, prefix) {
		return c, errcode.New(errcode.ProtocolError, "protocol.parse", MsgInvalidCommand)
	}
	i := bytes.Index(line, cmdKey)
	if i < 0 {
		return c, errcode.New(errcode.ProtocolError, "protocol.parse", MsgInvalidCommand)
	}
	name := line[i+len(cmdKey):]
	j := bytes.IndexByte(name, '"')
	if j < 0 || j > maxNameLen {
		return c, errcode.New(errcode.ProtocolError, "protocol.parse", MsgInvalidCommand)
	}
	c.Name = string(name[:j])

	if k := bytes.Index(line, valueKey); k >= 0 {
		v, n := conv.ParseFloatPrefix(line[k+len(valueKey):])
		if n == 0 {
			return c, errcode.New(errcode.ProtocolError, "protocol.parse", MsgInvalidValue)
		}
		c.Value, c.HasValue = v, true
	}
	return c, nil
}
