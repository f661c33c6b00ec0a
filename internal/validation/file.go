package validation

import (
	"fmt"
	"mime/multipart"
)

// ValidateUpload checks the declared size of a multipart upload. Any file
// type is accepted; the kill switch, not a type whitelist, is the
// content-control mechanism.
func ValidateUpload(header *multipart.FileHeader, maxSize int64) error {
	if header.Size > maxSize {
		return fmt.Errorf("file too large: maximum size is %d MB", maxSize/(1<<20))
	}
	return nil
}
