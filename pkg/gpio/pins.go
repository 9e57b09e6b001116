package gpio

// wiringPiToBCM maps wiringPi pin numbers to BCM line offsets on the
// 40-pin header.
var wiringPiToBCM = [NumPins]uint32{
	17, 18, 27, 22, 23, 24, 25, 4,
	2, 3, 8, 7, 10, 9, 11, 14,
	15, 28, 29, 30, 31, 5, 6, 13,
	19, 26, 12, 16, 20, 21, 0, 1,
}

// LineOffset translates pin to a gpiochip line offset under numbering n.
func LineOffset(n Numbering, pin int) uint32 {
	if n == NumberingWiringPi {
		return wiringPiToBCM[pin]
	}
	return uint32(pin)
}
