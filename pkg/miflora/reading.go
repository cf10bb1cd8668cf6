package miflora

import "fmt"

// Temperature is a soil temperature in tenths of a degree Celsius, as
// reported by the sensor.
type Temperature int16

func (t Temperature) Celsius() float64 {
	return float64(t) / 10
}

func (t Temperature) String() string {
	return fmt.Sprintf("%.1f°C", t.Celsius())
}

// SensorData holds the measurements packed into the real-time data
// characteristic.
type SensorData struct {
	Temperature  Temperature
	Light        uint32 // lux
	Moisture     uint8  // percent
	Conductivity uint16 // µS/cm
}

// Firmware holds the battery level and version string reported by the
// firmware characteristic.
type Firmware struct {
	Battery uint8 // percent
	Version string
}

// Reading is one complete set of measurements from a sensor. All fields come
// from the same session; a Reading is never partially populated.
type Reading struct {
	Address Address
	SensorData
	Firmware
}

func (r *Reading) String() string {
	return fmt.Sprintf("%s: %s, %d lx, %d%% moisture, %d µS/cm, battery %d%%, firmware %s",
		r.Address, r.Temperature, r.Light, r.Moisture, r.Conductivity, r.Battery, r.Version)
}
