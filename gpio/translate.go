package gpio

// Header pins the appliances are wired to, keyed physical -> BCM.
var physicalToBCM = map[uint32]uint32{
	37: 26,
	38: 20,
	22: 25,
	23: 24,
}

// PhysicalToBCM converts a header pin number to its Broadcom GPIO number.
// Pins outside the wiring table are passed through untouched.
func PhysicalToBCM(pin uint32) uint32 {
	if bcm, ok := physicalToBCM[pin]; ok {
		return bcm
	}
	glog().Warn().Uint32("pin", pin).Msg("No BCM mapping for pin, using it as-is")
	return pin
}
