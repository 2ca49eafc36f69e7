package elfcore

// Header is the decoded file header. Address and offset fields are widened
// to 64 bits; every value is taken verbatim from the image.
type Header struct {
	Ident     Ident  `json:"ident"`
	Type      uint16 `json:"type"`
	Machine   uint16 `json:"machine"`
	Version   uint32 `json:"version"`
	Entry     uint64 `json:"entry"`
	Phoff     uint64 `json:"phoff"`
	Shoff     uint64 `json:"shoff"`
	Flags     uint32 `json:"flags"`
	Ehsize    uint16 `json:"ehsize"`
	Phentsize uint16 `json:"phentsize"`
	Phnum     uint16 `json:"phnum"`
	Shentsize uint16 `json:"shentsize"`
	Shnum     uint16 `json:"shnum"`
	Shstrndx  uint16 `json:"shstrndx"`
}

// File types that change how the checks treat the entry point.
const (
	TypeNone uint16 = 0
	TypeRel  uint16 = 1
	TypeExec uint16 = 2
	TypeDyn  uint16 = 3
	TypeCore uint16 = 4
)

// IsExecutable reports whether the image declares itself runnable.
func (h Header) IsExecutable() bool {
	return h.Type == TypeExec || h.Type == TypeDyn
}
