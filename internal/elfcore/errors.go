package elfcore

import (
	"errors"
	"fmt"
)

// Detection-stage error kinds. Decode reports them wrapped in a *DetectError.
var (
	ErrBufferTooSmall           = errors.New("buffer too small")
	ErrBadMagic                 = errors.New("bad ELF magic")
	ErrUnsupportedClass         = errors.New("unsupported ELF class")
	ErrClassMismatch            = errors.New("ELF class does not match width")
	ErrEntrySizeMismatch        = errors.New("table entry size mismatch")
	ErrUnsupportedExtendedCount = errors.New("extended section count not supported")
)

// Access error kinds, returned per call on a bound *File.
var (
	ErrIndexOutOfRange         = errors.New("index out of range")
	ErrStringOffsetOutOfRange  = errors.New("string offset out of range")
	ErrInvalidStringTableIndex = errors.New("invalid string table index")
	ErrTruncated               = errors.New("region extends past end of buffer")
)

// DetectError is returned when a buffer cannot be bound to either width.
type DetectError struct {
	Kind   error
	Detail string
}

func (e *DetectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("not a valid ELF image: %v", e.Kind)
	}
	return fmt.Sprintf("not a valid ELF image: %v: %s", e.Kind, e.Detail)
}

func (e *DetectError) Unwrap() error {
	return e.Kind
}

// IsDetectError reports whether err came from the detection stage.
func IsDetectError(err error) bool {
	var de *DetectError
	return errors.As(err, &de)
}
