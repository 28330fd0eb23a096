// Package pdf validates PDF uploads and extracts their text in background jobs.
package pdf

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

// ValidateUpload checks an upload in a fixed order: extension, declared content type, size,
// then the %PDF- signature in head. The first failing rule wins. Size violations are
// reported with common.CodeTooLarge.
func ValidateUpload(filename, contentType string, size int64, head []byte, maxBytes int64) error {
	if strings.TrimSpace(filename) == "" || size <= 0 {
		return common.ValidationError("No file uploaded.", nil)
	}
	if constants.NormalizeExt(filepath.Ext(filename)) != constants.PDFExtension {
		return common.ValidationError("Invalid file extension. Only PDF files (.pdf) are allowed.", nil)
	}
	if mediaType(contentType) != constants.PDFContentType {
		return common.ValidationError("Invalid file type. Only PDF is allowed.", nil)
	}
	if maxBytes > 0 && size > maxBytes {
		return common.TooLargeError(fmt.Sprintf("File exceeds maximum size limit of %dMB.", maxBytes/(1024*1024)))
	}
	if !bytes.HasPrefix(head, []byte(constants.PDFMagic)) {
		return common.ValidationError("Invalid PDF file content. The file does not appear to be a valid PDF.", nil)
	}
	return nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
