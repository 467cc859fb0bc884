package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is zero
// or has more than one bit set
var PowerOfTwoError error = errors.New("number must be a non-zero power of two")
