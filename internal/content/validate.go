package content

import (
	"fmt"
	"strings"
)

// FilePolicy bounds the uploads accepted for a file-backed variant. The check
// is read-only and must run before anything is written to storage.
type FilePolicy struct {
	MaxBytes   int64
	Extensions []string
}

var (
	videoUploadPolicy = &FilePolicy{
		MaxBytes:   100 << 20,
		Extensions: []string{"mp4", "mov", "avi", "mkv", "webm"},
	}
	documentUploadPolicy = &FilePolicy{
		MaxBytes:   5 << 20,
		Extensions: []string{"pdf", "doc", "docx", "xls", "xlsx"},
	}
)

// Check validates a candidate upload by name and declared size. A file exactly
// at the size limit is accepted; the limit is exclusive only beyond it.
func (p *FilePolicy) Check(filename string, size int64) error {
	if size > p.MaxBytes {
		return &ValidationError{
			Reason:  ReasonFileTooLarge,
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d MiB limit", p.MaxBytes>>20),
		}
	}

	ext := Extension(filename)
	if ext == "" {
		return &ValidationError{
			Reason:  ReasonMissingExtension,
			Field:   "file",
			Message: "filename has no extension",
		}
	}

	for _, allowed := range p.Extensions {
		if ext == allowed {
			return nil
		}
	}

	return &ValidationError{
		Reason:  ReasonUnsupportedExtension,
		Field:   "file",
		Message: fmt.Sprintf("unsupported extension %q, allowed: %s", ext, strings.Join(p.Extensions, ", ")),
	}
}

// Extension returns the lowercased last dot-segment of a filename, or an
// empty string when the name carries no usable extension.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
