package serial

import "strconv"

// Serial identifies a unit of submitted device work. Serials are handed out in increasing order and
// a serial is retired once the device reports that all work up to and including it has completed.
type Serial uint64

// Zero is never handed out by a Counter, so objects stamped with it are always retired
const Zero Serial = 0

func (s Serial) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Oracle reports submission progress. CurrentSerial is the serial that work recorded right now will be
// submitted under, and LastCompletedSerial is the most recent serial the device has finished.
// Neither call may block on the device.
type Oracle interface {
	CurrentSerial() Serial
	LastCompletedSerial() Serial
	IsSerialInUse(serial Serial) bool
}

// IsRetired reports whether serial has been completed according to oracle
func IsRetired(oracle Oracle, serial Serial) bool {
	return serial <= oracle.LastCompletedSerial()
}
