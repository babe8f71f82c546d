package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~uint32 | ~uint64
}

func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func IsPow2[T Number](number T) bool {
	return number != 0 && number&(number-1) == 0
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// AlignDown rounds value down to the previous multiple of alignment, which must be a power of two
func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// RoundUp rounds value up to the next multiple of multiple, which does not need to be a power of two
func RoundUp(value int, multiple int) int {
	if multiple <= 1 {
		return value
	}
	return ((value + multiple - 1) / multiple) * multiple
}

// AtomAlignment returns the least common multiple of a requested alignment and the device's
// non-coherent atom size. The atom size is always a power of two. The requested alignment is
// either a power of two, in which case one of the two values divides the other, or three times
// a power of two, which is what 3-component formats with 16- or 32-bit channels require.
func AtomAlignment(alignment int, atomSize int) (int, error) {
	if alignment <= 0 {
		return 0, cerrors.Newf("alignment must be positive but was %d", alignment)
	}

	err := CheckPow2(atomSize, "nonCoherentAtomSize")
	if err != nil {
		return 0, err
	}

	if IsPow2(alignment) {
		if alignment > atomSize {
			return alignment, nil
		}
		return atomSize, nil
	}

	if alignment%3 != 0 {
		return 0, cerrors.Wrapf(AlignmentError, "alignment is %d", alignment)
	}

	third := alignment / 3
	err = CheckPow2(third, "alignment/3")
	if err != nil {
		return 0, cerrors.Wrapf(AlignmentError, "alignment is %d", alignment)
	}

	if third < atomSize {
		third = atomSize
	}
	return third * 3, nil
}
