package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

// Number is any integer type used to express sizes, offsets and alignments
type Number interface {
	~int | ~uint | ~uintptr | ~uint32 | ~uint64
}

// CheckPow2 returns a wrapped PowerOfTwoError naming the offending value if number is not a power of two
func CheckPow2[T Number](number T, name string) error {
	if !IsPow2(number) {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func IsPow2[T Number](number T) bool {
	return number != 0 && number&(number-1) == 0
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp[T Number](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

// AlignDown rounds value down to the previous multiple of alignment, which must be a power of two
func AlignDown[T Number](value T, alignment T) T {
	return value &^ (alignment - 1)
}

func IsAligned[T Number](value T, alignment T) bool {
	return value&(alignment-1) == 0
}
