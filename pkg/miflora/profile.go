package miflora

// Flower Care GATT identifiers. These are fixed per device type; see
// https://github.com/ChrisScheffler/miflora/wiki/The-Basics for the
// reverse-engineered protocol.
const (
	// RootServiceUUID is advertised by every Xiaomi BLE device.
	RootServiceUUID = "0000fe95-0000-1000-8000-00805f9b34fb"

	// DataServiceUUID contains the three characteristics below.
	DataServiceUUID = "00001204-0000-1000-8000-00805f9b34fb"

	// CommandCharUUID accepts device commands, notably the real-time mode
	// switch.
	CommandCharUUID = "00001a00-0000-1000-8000-00805f9b34fb"

	// SensorDataCharUUID holds temperature, light, moisture and conductivity
	// in a single packed value.
	SensorDataCharUUID = "00001a01-0000-1000-8000-00805f9b34fb"

	// FirmwareCharUUID holds the battery level and firmware version string.
	FirmwareCharUUID = "00001a02-0000-1000-8000-00805f9b34fb"
)

// realtimeModeCommand switches the sensor data characteristic from cached to
// live readings. Without it the device reports stale values.
var realtimeModeCommand = []byte{0xA0, 0x1F}
