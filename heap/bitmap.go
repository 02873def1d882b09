// ABOUTME: Argument and frame layout bitmaps
// ABOUTME: Small single-word bitmaps, multi-word large bitmaps and the standard argument patterns

package heap

import (
	"fmt"
	"strings"
)

// WordBits is the number of bitmap bits held by one Word.
const WordBits = 64

const (
	smallSizeBits = 6
	smallSizeMask = 1<<smallSizeBits - 1
)

// Bitmap describes which slots of a payload hold pointers. Bit i covers
// slot i: a set bit marks a non-pointer, a clear bit marks a pointer.
// Bits are consumed least significant first, word after word.
type Bitmap struct {
	Size  uint32
	Words []Word
}

// SmallBitmap decodes the packed single-word form: slot count in the low
// six bits, slot bits above.
func SmallBitmap(packed Word) Bitmap {
	return Bitmap{
		Size:  uint32(packed & smallSizeMask),
		Words: []Word{packed >> smallSizeBits},
	}
}

// PackSmall encodes a bitmap of at most WordBits-6 slots into one word.
func PackSmall(size uint32, bits Word) (Word, error) {
	if size > WordBits-smallSizeBits {
		return 0, fmt.Errorf("small bitmap of %d slots exceeds %d", size, WordBits-smallSizeBits)
	}
	return bits<<smallSizeBits | Word(size), nil
}

// IsPtr reports whether slot i holds a pointer.
func (b Bitmap) IsPtr(i uint32) bool {
	return b.Words[i/WordBits]>>(i%WordBits)&1 == 0
}

// IsLarge reports whether the bitmap spans more than one word.
func (b Bitmap) IsLarge() bool {
	return b.Size > WordBits
}

// Validate checks that the words cover every slot.
func (b Bitmap) Validate() error {
	need := int((b.Size + WordBits - 1) / WordBits)
	if len(b.Words) < need {
		return fmt.Errorf("bitmap of %d slots has %d words, need %d", b.Size, len(b.Words), need)
	}
	return nil
}

// String renders the bitmap one letter per slot: P for a pointer slot,
// N for a non-pointer slot.
func (b Bitmap) String() string {
	var sb strings.Builder
	sb.Grow(int(b.Size))
	for i := uint32(0); i < b.Size; i++ {
		if b.IsPtr(i) {
			sb.WriteByte('P')
		} else {
			sb.WriteByte('N')
		}
	}
	return sb.String()
}

// ParseBitmap builds a bitmap from its String form.
func ParseBitmap(s string) (Bitmap, error) {
	b := Bitmap{
		Size:  uint32(len(s)),
		Words: make([]Word, (len(s)+WordBits-1)/WordBits),
	}
	for i, c := range []byte(s) {
		switch c {
		case 'P', 'p':
		case 'N', 'n':
			b.Words[i/WordBits] |= 1 << (uint(i) % WordBits)
		default:
			return Bitmap{}, fmt.Errorf("invalid layout letter %q at %d", c, i)
		}
	}
	return b, nil
}

// MustParseBitmap is ParseBitmap for layouts known to be valid.
func MustParseBitmap(s string) Bitmap {
	b, err := ParseBitmap(s)
	if err != nil {
		panic(err)
	}
	return b
}

// FunType selects how a function's argument layout is found.
type FunType uint8

const (
	// ArgGen: the layout is the function's own small bitmap.
	ArgGen FunType = iota
	// ArgGenBig: the layout is the function's own large bitmap.
	ArgGenBig
	// ArgBCO: the layout is the bitmap of the byte-code object itself.
	ArgBCO
	ArgNone
	ArgN
	ArgP
	ArgF
	ArgD
	ArgL
	ArgV16
	ArgV32
	ArgV64
	ArgNN
	ArgNP
	ArgPN
	ArgPP
	ArgNNN
	ArgNNP
	ArgNPN
	ArgNPP
	ArgPNN
	ArgPNP
	ArgPPN
	ArgPPP
	ArgPPPP
	ArgPPPPP
	ArgPPPPPP
	ArgPPPPPPP
	ArgPPPPPPPP

	numFunTypes
)

// Standard argument patterns. F, D and L are one non-pointer word each;
// vector registers span several non-pointer words.
var stdArgLayouts = [numFunTypes]string{
	ArgNone:     "",
	ArgN:        "N",
	ArgP:        "P",
	ArgF:        "N",
	ArgD:        "N",
	ArgL:        "N",
	ArgV16:      "NN",
	ArgV32:      "NNNN",
	ArgV64:      "NNNNNNNN",
	ArgNN:       "NN",
	ArgNP:       "NP",
	ArgPN:       "PN",
	ArgPP:       "PP",
	ArgNNN:      "NNN",
	ArgNNP:      "NNP",
	ArgNPN:      "NPN",
	ArgNPP:      "NPP",
	ArgPNN:      "PNN",
	ArgPNP:      "PNP",
	ArgPPN:      "PPN",
	ArgPPP:      "PPP",
	ArgPPPP:     "PPPP",
	ArgPPPPP:    "PPPPP",
	ArgPPPPPP:   "PPPPPP",
	ArgPPPPPPP:  "PPPPPPP",
	ArgPPPPPPPP: "PPPPPPPP",
}

var stdArgBitmaps = func() [numFunTypes]Word {
	var t [numFunTypes]Word
	for ft := ArgNone; ft < numFunTypes; ft++ {
		b := MustParseBitmap(stdArgLayouts[ft])
		var bits Word
		if len(b.Words) > 0 {
			bits = b.Words[0]
		}
		t[ft], _ = PackSmall(b.Size, bits)
	}
	return t
}()

// StdArgBitmap returns the packed small bitmap of a standard argument
// pattern. It reports false for ArgGen, ArgGenBig, ArgBCO and unknown types.
func StdArgBitmap(ft FunType) (Word, bool) {
	if ft < ArgNone || ft >= numFunTypes {
		return 0, false
	}
	return stdArgBitmaps[ft], true
}

var funTypeNames = [numFunTypes]string{
	ArgGen:    "ARG_GEN",
	ArgGenBig: "ARG_GEN_BIG",
	ArgBCO:    "ARG_BCO",
	ArgNone:   "ARG_NONE",
	ArgF:      "ARG_F",
	ArgD:      "ARG_D",
	ArgL:      "ARG_L",
	ArgV16:    "ARG_V16",
	ArgV32:    "ARG_V32",
	ArgV64:    "ARG_V64",
}

func (ft FunType) String() string {
	if ft >= numFunTypes {
		return fmt.Sprintf("FunType(%d)", uint8(ft))
	}
	if name := funTypeNames[ft]; name != "" {
		return name
	}
	return "ARG_" + stdArgLayouts[ft]
}

// ParseFunType reverses FunType.String.
func ParseFunType(s string) (FunType, error) {
	for ft := ArgGen; ft < numFunTypes; ft++ {
		if ft.String() == s {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("unknown function type %q", s)
}
