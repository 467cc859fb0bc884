//go:build debug_tcalloc

package memutils

import "unsafe"

const (
	// DebugMargin is the number of guard bytes placed after every allocation handed out by heaps
	// built on memutils
	DebugMargin int = 16
	// corruptionDetectionMagicValue is the 4-byte pattern repeated across the guard bytes
	corruptionDetectionMagicValue uint32 = 0x7F84E666
)

// WriteMagicValue writes an easy-to-identify marker across DebugMargin bytes at the provided pointer and offset.
// This method no-ops unless the debug_tcalloc build tag is present.
func WriteMagicValue(data unsafe.Pointer, offset int) {
	dest := unsafe.Add(data, offset)
	for i := 0; i < DebugMargin; i += int(unsafe.Sizeof(uint32(0))) {
		*(*uint32)(unsafe.Add(dest, i)) = corruptionDetectionMagicValue
	}
}

// ValidateMagicValue verifies that the marker written by WriteMagicValue is still present.
// It returns true if the value is still present and false otherwise.
// This method always returns true unless the debug_tcalloc build tag is present.
func ValidateMagicValue(data unsafe.Pointer, offset int) bool {
	source := unsafe.Add(data, offset)
	for i := 0; i < DebugMargin; i += int(unsafe.Sizeof(uint32(0))) {
		if *(*uint32)(unsafe.Add(source, i)) != corruptionDetectionMagicValue {
			return false
		}
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_tcalloc build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_tcalloc build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(err)
	}
}

// DebugAssert panics with the provided message when condition is false. This method no-ops unless the
// debug_tcalloc build tag is present.
func DebugAssert(condition bool, message string) {
	if !condition {
		panic(message)
	}
}
