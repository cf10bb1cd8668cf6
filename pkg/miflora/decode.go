package miflora

import (
	"encoding/binary"
	"strings"

	"github.com/plantsense/miflora-go/pkg/protocol"
)

// Sensor data characteristic layout, little-endian:
//
//	offset 0: int16  temperature, 0.1 °C
//	offset 2: uint8  (unused)
//	offset 3: uint32 light intensity, lux
//	offset 7: uint8  moisture, percent
//	offset 8: uint16 conductivity, µS/cm
const sensorDataLength = 10

// Firmware characteristic layout:
//
//	offset 0: uint8 battery, percent
//	offset 1: uint8 (unused)
//	offset 2: firmware version text, padded
const firmwareLength = 3

// DecodeSensorData interprets the value of the real-time data characteristic.
// The payload must hold every field; a short payload yields a DecodeError
// naming the first field that does not fit.
func DecodeSensorData(p []byte) (SensorData, error) {
	var d SensorData
	switch {
	case len(p) < 2:
		return d, &protocol.DecodeError{Field: "temperature", Need: 2, Got: len(p)}
	case len(p) < 7:
		return d, &protocol.DecodeError{Field: "light", Need: 7, Got: len(p)}
	case len(p) < 8:
		return d, &protocol.DecodeError{Field: "moisture", Need: 8, Got: len(p)}
	case len(p) < sensorDataLength:
		return d, &protocol.DecodeError{Field: "conductivity", Need: sensorDataLength, Got: len(p)}
	}
	d.Temperature = Temperature(int16(binary.LittleEndian.Uint16(p[0:2])))
	d.Light = binary.LittleEndian.Uint32(p[3:7])
	d.Moisture = p[7]
	d.Conductivity = binary.LittleEndian.Uint16(p[8:10])
	return d, nil
}

// DecodeFirmware interprets the value of the firmware/battery characteristic.
func DecodeFirmware(p []byte) (Firmware, error) {
	var f Firmware
	switch {
	case len(p) < 1:
		return f, &protocol.DecodeError{Field: "battery", Need: 1, Got: len(p)}
	case len(p) < firmwareLength:
		return f, &protocol.DecodeError{Field: "version", Need: firmwareLength, Got: len(p)}
	}
	f.Battery = p[0]
	f.Version = strings.TrimRight(string(p[2:]), "\x00 ")
	return f, nil
}
