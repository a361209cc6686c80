package zipfilter

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/yeka/zip"
)

// ZstdMethod is the WinZip method id for zstd compressed entries.
const ZstdMethod uint16 = zstd.ZipMethodWinZip

var registerOnce sync.Once

// registerDecompressors installs the decompressors the zip reader lacks.
// Registration is global to the zip package and panics on duplicates.
func registerDecompressors() {
	registerOnce.Do(func() {
		zip.RegisterDecompressor(ZstdMethod, zip.Decompressor(zstd.ZipDecompressor()))
	})
}

// MethodName returns a readable label for a zip compression method id.
func MethodName(method uint16) string {
	switch method {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	case 12:
		return "bzip2"
	case 14:
		return "lzma"
	case ZstdMethod:
		return "zstd"
	case 95:
		return "xz"
	case 99:
		// WinZip AES marks the real method in its extra field.
		return "aes"
	default:
		return "unknown"
	}
}
