package constants

import "strings"

const (
	PDFExtension   = "pdf"
	PDFContentType = "application/pdf"
	// PDFMagic is the 5-byte signature every PDF starts with.
	PDFMagic = "%PDF-"

	// JobKeyPrefix namespaces job records in the key-value store.
	JobKeyPrefix = "pdf-job:"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
