package ens16x

// I2C address.
const Address = 0x52

// Registers.
const (
	regPartID       = 0x00
	regOpMode       = 0x10
	regTempIn       = 0x13 // followed by RH_IN at 0x15; written as one burst
	regDeviceStatus = 0x20
	regDataAQI      = 0x21 // UBA index 1..5
	regDataTVOC     = 0x22
	regDataECO2     = 0x24
	regDataAQIS     = 0x26
	regDataT        = 0x30 // compensation temperature in use
	regDataRH       = 0x32 // compensation humidity in use
)

// DEVICE_STATUS bits.
const (
	bitNewGPR  = 1 << 0
	bitNewData = 1 << 1
	maskValid  = 0x0C
	shiftValid = 2
	bitModeErr = 1 << 6
	bitRunning = 1 << 7
)

// Status is the validity field of DEVICE_STATUS.
type Status uint8

const (
	StatusOK Status = iota
	StatusWarmingUp
	StatusReserved
	StatusNoValidOutput
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarmingUp:
		return "Warming Up"
	case StatusReserved:
		return "Reserved"
	case StatusNoValidOutput:
		return "No Valid Output"
	}
	return "Unknown"
}

// Flags is a raw DEVICE_STATUS byte.
type Flags uint8

func (f Flags) NewGPR() bool     { return f&bitNewGPR != 0 }
func (f Flags) NewData() bool    { return f&bitNewData != 0 }
func (f Flags) ModeError() bool  { return f&bitModeErr != 0 }
func (f Flags) Running() bool    { return f&bitRunning != 0 }
func (f Flags) Validity() Status { return Status((uint8(f) & maskValid) >> shiftValid) }

// Mode is the OPMODE register value.
type Mode uint8

const (
	ModeDeepSleep     Mode = 0x00
	ModeIdle          Mode = 0x01
	ModeStandard      Mode = 0x02
	ModeLowPower      Mode = 0x03
	ModeUltraLowPower Mode = 0x04
	ModeReset         Mode = 0xF0
)

func (m Mode) String() string {
	switch m {
	case ModeDeepSleep:
		return "deep_sleep"
	case ModeIdle:
		return "idle"
	case ModeStandard:
		return "standard"
	case ModeLowPower:
		return "low_power"
	case ModeUltraLowPower:
		return "ultra_low_power"
	case ModeReset:
		return "reset"
	}
	return "unknown"
}
