package miflora

import (
	"fmt"
	"net"
)

// Address is the fixed 48-bit hardware address of a sensor. Addresses are
// compared by value and never change once configured.
type Address [6]byte

// ParseAddress parses colon- or dash-separated hex octets, such as
// "C4:7C:8D:66:A5:3D".
func ParseAddress(s string) (Address, error) {
	var addr Address
	hw, err := net.ParseMAC(s)
	if err != nil {
		return addr, fmt.Errorf("invalid sensor address %q: %s", s, err)
	}
	if len(hw) != len(addr) {
		return addr, fmt.Errorf("invalid sensor address %q: expected 6 octets, got %d", s, len(hw))
	}
	copy(addr[:], hw)
	return addr, nil
}

func (a Address) String() string {
	return net.HardwareAddr(a[:]).String()
}
