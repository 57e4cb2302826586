package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".txt": true,
	".pdf": true,
}

// Validator validates uploads and chat requests
type Validator struct {
	cfg config.FileUploadConfig
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks the extension and size of an uploaded document
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	return v.ValidateDocument(fh.Filename, fh.Size)
}

// ValidateDocument checks a document by name and size, for uploads that do
// not arrive as multipart files
func (v *Validator) ValidateDocument(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: txt, pdf)", entity.ErrInvalidExtension, ext)
	}

	if size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, name, size, v.cfg.MaxFileSize)
	}

	if size == 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, name)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for logs and artifact metadata
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
