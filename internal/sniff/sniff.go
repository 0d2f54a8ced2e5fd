package sniff

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"asset-catalog/internal/mediatypes"
)

// Kind is the content class of a file as decided by its leading bytes.
type Kind int

const (
	Unknown Kind = iota
	Zip
	SevenZip
	Rar
	StlModel
)

// HeaderSize is the number of bytes SniffFile reads. It matches the
// mimetype detector's default read limit so the last-resort classification
// sees the same window.
const HeaderSize = 3072

var (
	magicZip      = []byte("PK")
	magicSevenZip = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	magicRar4     = []byte{'R', 'a', 'r', '!', 0x1A, 0x07, 0x00}
	magicRar5     = []byte{'R', 'a', 'r', '!', 0x1A, 0x07, 0x01, 0x00}

	oldStyleRarPart = regexp.MustCompile(`^\.r\d+$`)
)

func (k Kind) String() string {
	switch k {
	case Zip:
		return "zip-archive"
	case SevenZip:
		return "sevenzip-archive"
	case Rar:
		return "rar-archive"
	case StlModel:
		return "stl-model"
	default:
		return "unknown"
	}
}

// IsArchive reports whether k is one of the archive kinds.
func (k Kind) IsArchive() bool {
	return k == Zip || k == SevenZip || k == Rar
}

// Sniff classifies content from its header and, failing that, from ext.
// Magic bytes always win over the extension.
func Sniff(header []byte, ext string) Kind {
	if k := fromMagic(header); k != Unknown {
		return k
	}
	if k := FromExt(ext); k != Unknown {
		return k
	}
	return fromContent(header)
}

// FromExt maps a lowercased or mixed-case extension (with its dot) to a Kind.
func FromExt(ext string) Kind {
	ext = strings.ToLower(ext)
	switch ext {
	case ".zip", ".cbz":
		return Zip
	case ".7z":
		return SevenZip
	case ".rar", ".cbr":
		return Rar
	case ".stl":
		return StlModel
	}
	if oldStyleRarPart.MatchString(ext) {
		return Rar
	}
	return Unknown
}

// SniffFile reads the first HeaderSize bytes of path and classifies them,
// using the file's extension as the fallback.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Unknown, fmt.Errorf("read header of %s: %w", path, err)
	}
	return Sniff(header[:n], mediatypes.Ext(path)), nil
}

func fromMagic(header []byte) Kind {
	switch {
	case bytes.HasPrefix(header, magicZip):
		return Zip
	case bytes.HasPrefix(header, magicSevenZip):
		return SevenZip
	case bytes.HasPrefix(header, magicRar4), bytes.HasPrefix(header, magicRar5):
		return Rar
	}
	return Unknown
}

// fromContent is the last resort. Anything the detector recognises as a
// concrete format is not a model; ASCII "solid" text and opaque binary are
// assumed to be STL.
func fromContent(header []byte) Kind {
	if len(header) == 0 {
		return Unknown
	}
	trimmed := bytes.TrimLeft(header, " \t\r\n")
	if len(trimmed) >= 5 && strings.EqualFold(string(trimmed[:5]), "solid") {
		return StlModel
	}

	mt := mimetype.Detect(header)
	if mt.Is("application/octet-stream") {
		return StlModel
	}
	return Unknown
}
