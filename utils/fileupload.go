package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFileSize caps product photo uploads at 10 MB
const MaxFileSize = 10 << 20

// Upload rejection codes
const (
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeEmptyFile         = "EMPTY_FILE"
	CodeInvalidFileFormat = "INVALID_FILE_FORMAT"
)

// AllowedImageFormats maps accepted product image extensions to their content type
var AllowedImageFormats = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileUploadError is a client-side upload rejection carrying an API error code
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile checks size and extension of a product photo upload
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	switch {
	case fileHeader.Size > MaxFileSize:
		return &FileUploadError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("Image exceeds the %d MB limit", MaxFileSize>>20),
		}
	case fileHeader.Size == 0:
		return &FileUploadError{Code: CodeEmptyFile, Message: "Image file is empty"}
	}

	if _, ok := ImageContentType(fileHeader.Filename); !ok {
		return &FileUploadError{
			Code:    CodeInvalidFileFormat,
			Message: "Product images must be .png, .jpg, .jpeg or .webp",
		}
	}
	return nil
}

// ImageContentType returns the content type for an accepted image filename
func ImageContentType(filename string) (string, bool) {
	contentType, ok := AllowedImageFormats[strings.ToLower(filepath.Ext(filename))]
	return contentType, ok
}

// SafeFilename reduces a client supplied name to a single S3 friendly path segment
func SafeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		return "upload"
	}
	return base
}
