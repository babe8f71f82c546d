package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// AlignmentError is returned from AtomAlignment when a requested alignment is neither a power of two nor
// three times a power of two
var AlignmentError error = errors.New("alignment must be a power of two or three times a power of two")
