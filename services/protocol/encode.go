package protocol

import (
	"aircube-go/types"
	"aircube-go/x/conv"
)

// AppendOK appends {"status":"ok","cmd":<cmd>,"value":<v>} and a newline.
func AppendOK(dst []byte, cmd string, v float64) []byte {
	dst = append(dst, `{"status":"ok","cmd":"`...)
	dst = append(dst, cmd...)
	dst = append(dst, `","value":`...)
	dst = conv.AppendFixed(dst, v, 2)
	return append(dst, "}\n"...)
}

// AppendError appends {"status":"error","msg":<msg>} and a newline.
func AppendError(dst []byte, msg string) []byte {
	dst = append(dst, `{"status":"error","msg":"`...)
	dst = append(dst, msg...)
	return append(dst, "\"}\n"...)
}

// AppendConfig appends the get_config response and a newline.
func AppendConfig(dst []byte, intensity float64, periodMs uint32) []byte {
	dst = append(dst, `{"config":{"intensity":`...)
	dst = conv.AppendFixed(dst, intensity, 2)
	dst = append(dst, `,"readout_period":`...)
	dst = conv.AppendUint(dst, uint64(periodMs))
	return append(dst, "}}\n"...)
}

// AppendTelemetry appends one telemetry line for r.
func AppendTelemetry(dst []byte, r types.EnvReading) []byte {
	c, a := r.Climate, r.AirQuality
	dst = append(dst, `{"ens210":{"status":`...)
	dst = conv.AppendUint(dst, uint64(c.Status))
	dst = append(dst, `,"temperature_c":`...)
	dst = conv.AppendFixed(dst, c.Celsius, 2)
	dst = append(dst, `,"temperature_f":`...)
	dst = conv.AppendFixed(dst, c.Fahrenheit, 2)
	dst = append(dst, `,"humidity":`...)
	dst = conv.AppendFixed(dst, c.Humidity, 2)
	dst = append(dst, `},"ens16x":{"status":"`...)
	dst = append(dst, a.Status.String()...)
	dst = append(dst, `","etvoc":`...)
	dst = conv.AppendInt(dst, int64(a.TVOC))
	dst = append(dst, `,"eco2":`...)
	dst = conv.AppendInt(dst, int64(a.ECO2))
	dst = append(dst, `,"aqi":`...)
	dst = conv.AppendInt(dst, int64(a.AQI))
	dst = append(dst, `},"timestamp":`...)
	dst = conv.AppendUint(dst, uint64(r.TS))
	return append(dst, "}\n"...)
}
