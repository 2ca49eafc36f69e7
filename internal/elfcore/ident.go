package elfcore

import (
	"encoding/binary"
	"fmt"
)

// Width is the address/offset size of an image.
type Width uint8

const (
	Width32 Width = 32
	Width64 Width = 64
)

func (w Width) String() string {
	switch w {
	case Width32:
		return "ELF32"
	case Width64:
		return "ELF64"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

// Identification byte offsets.
const (
	identClass      = 4
	identData       = 5
	identVersion    = 6
	identOSABI      = 7
	identABIVersion = 8
)

// Class and data encoding codes.
const (
	classELF32 = 1
	classELF64 = 2

	dataMSB = 2
)

// SectionCountReserve is SHN_LORESERVE. Section counts at or above it are
// stored in section 0, which is not supported.
const SectionCountReserve = 0xFF00

var magic = [4]byte{0x7F, 'E', 'L', 'F'}

// Ident holds the raw identification bytes of interest.
type Ident struct {
	Class      uint8 `json:"class"`
	Data       uint8 `json:"data"`
	Version    uint8 `json:"version"`
	OSABI      uint8 `json:"os_abi"`
	ABIVersion uint8 `json:"abi_version"`
}

func hasMagic(buf []byte) bool {
	return len(buf) >= len(magic) &&
		buf[0] == magic[0] && buf[1] == magic[1] && buf[2] == magic[2] && buf[3] == magic[3]
}

// byteOrderOf picks the order declared by the data-encoding byte. Anything
// other than MSB reads as little-endian.
func byteOrderOf(buf []byte) binary.ByteOrder {
	if len(buf) > identData && buf[identData] == dataMSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func widthOfClass(c uint8) (Width, bool) {
	switch c {
	case classELF32:
		return Width32, true
	case classELF64:
		return Width64, true
	default:
		return 0, false
	}
}

func layoutFor(w Width) layout {
	if w == Width64 {
		return elf64{}
	}
	return elf32{}
}

// check runs the identification checks for width w and returns the bare
// kind of the first failure. It does not allocate.
func check(buf []byte, w Width) error {
	if w != Width32 && w != Width64 {
		return ErrUnsupportedClass
	}
	l := layoutFor(w)
	if len(buf) < l.headerSize() {
		return ErrBufferTooSmall
	}
	if !hasMagic(buf) {
		return ErrBadMagic
	}
	got, ok := widthOfClass(buf[identClass])
	if !ok {
		return ErrUnsupportedClass
	}
	if got != w {
		return ErrClassMismatch
	}
	shentsize, phentsize := l.entrySizes(NewByteView(buf, byteOrderOf(buf)))
	if shentsize != 0 && int(shentsize) != l.sectionSize() {
		return ErrEntrySizeMismatch
	}
	if phentsize != 0 && int(phentsize) != l.programSize() {
		return ErrEntrySizeMismatch
	}
	return nil
}

// Validate checks whether buf is a candidate image of width w: header
// length, magic, class and, when present, both table entry sizes.
func Validate(buf []byte, w Width) error {
	kind := check(buf, w)
	if kind == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", kind, describe(buf, w, kind))
}

func describe(buf []byte, w Width, kind error) string {
	l := layoutFor(w)
	switch kind {
	case ErrBufferTooSmall:
		return fmt.Sprintf("%d bytes, %v header needs %d", len(buf), w, l.headerSize())
	case ErrBadMagic:
		return fmt.Sprintf("% x", buf[:len(magic)])
	case ErrUnsupportedClass:
		if w != Width32 && w != Width64 {
			return w.String()
		}
		return fmt.Sprintf("class byte %d", buf[identClass])
	case ErrClassMismatch:
		got, _ := widthOfClass(buf[identClass])
		return fmt.Sprintf("image is %v, want %v", got, w)
	case ErrEntrySizeMismatch:
		shentsize, phentsize := l.entrySizes(NewByteView(buf, byteOrderOf(buf)))
		if shentsize != 0 && int(shentsize) != l.sectionSize() {
			return fmt.Sprintf("shentsize %d, %v sections are %d bytes", shentsize, w, l.sectionSize())
		}
		return fmt.Sprintf("phentsize %d, %v program headers are %d bytes", phentsize, w, l.programSize())
	}
	return ""
}

// IsValid is the boolean form of Validate.
func IsValid(buf []byte, w Width) bool {
	return check(buf, w) == nil
}

// Recognize returns the width of the first candidate that validates,
// trying 64-bit before 32-bit.
func Recognize(buf []byte) (Width, bool) {
	for _, w := range []Width{Width64, Width32} {
		if IsValid(buf, w) {
			return w, true
		}
	}
	return 0, false
}

// detect binds buf to a width or explains, with the most specific kind,
// why neither candidate applies.
func detect(buf []byte) (Width, error) {
	if w, ok := Recognize(buf); ok {
		return w, nil
	}

	minSize := elf32{}.headerSize()
	if len(buf) < minSize {
		return 0, &DetectError{Kind: ErrBufferTooSmall, Detail: fmt.Sprintf("%d bytes, need at least %d", len(buf), minSize)}
	}
	if !hasMagic(buf) {
		return 0, &DetectError{Kind: ErrBadMagic, Detail: fmt.Sprintf("% x", buf[:len(magic)])}
	}
	w, ok := widthOfClass(buf[identClass])
	if !ok {
		return 0, &DetectError{Kind: ErrUnsupportedClass, Detail: fmt.Sprintf("class byte %d", buf[identClass])}
	}
	kind := check(buf, w)
	return 0, &DetectError{Kind: kind, Detail: describe(buf, w, kind)}
}
