package archive

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrNeedsAllParts is returned for any operation on a multi-part RAR volume
// other than the first. Such volumes cannot be read on their own.
var ErrNeedsAllParts = errors.New("multi-part archive volume requires all parts")

// ErrSpansVolumes is returned when a first volume read on its own reaches
// data stored in a later volume.
var ErrSpansVolumes = errors.New("archive continues in a later volume")

var (
	newStylePart = regexp.MustCompile(`\.part(\d+)\.rar$`)
	oldStylePart = regexp.MustCompile(`\.r(\d+)$`)
)

// MultipartIndex returns the 1-based volume number encoded in a RAR file
// name. "x.part3.rar" is volume 3; old-style "x.r00" is volume 1 and "x.r01"
// volume 2. A plain ".rar" name is not reported as multipart.
func MultipartIndex(name string) (int, bool) {
	lower := strings.ToLower(filepath.Base(name))

	if m := newStylePart.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	if m := oldStylePart.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n + 1, true
	}
	return 0, false
}

// IsMultipart reports whether name is a volume of a multi-part RAR set.
func IsMultipart(name string) bool {
	_, ok := MultipartIndex(name)
	return ok
}

// IsContinuation reports whether name is a multi-part volume after the first.
func IsContinuation(name string) bool {
	n, ok := MultipartIndex(name)
	return ok && n > 1
}

// IsFirstPart reports whether name is the first volume of a multi-part set.
func IsFirstPart(name string) bool {
	n, ok := MultipartIndex(name)
	return ok && n == 1
}

func checkPart(path string) error {
	if IsContinuation(path) {
		return ErrNeedsAllParts
	}
	return nil
}
