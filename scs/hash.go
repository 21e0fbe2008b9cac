package scs

import (
	"strings"

	"github.com/go-faster/city"
)

// PathHash computes the content hash for an archive path, the same
// CityHash64 the archive index is keyed by. Paths are stored without a
// leading slash and with forward separators, so both are normalized
// here. This derives hashes from paths the caller already knows; the
// archive itself never yields a path back.
func PathHash(path string) uint64 {
	path = strings.TrimPrefix(path, "/")
	path = strings.ReplaceAll(path, "\\", "/")
	return city.CH64([]byte(path))
}
