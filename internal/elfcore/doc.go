// Package elfcore decodes the structure of an ELF image held in memory.
//
// Decode inspects the identification bytes, binds the buffer to the 32- or
// 64-bit layout and returns a *File. From then on callers read the file
// header, section and program header tables and the section-name string
// table without regard to width. Integers are decoded in the byte order the
// image declares.
//
// The package never copies, modifies or retains anything but the caller's
// slice, and every offset taken from the image is checked against the
// buffer before it is used. Symbol tables, relocations, dynamic entries and
// the extended section count held in section 0 are not interpreted.
package elfcore
