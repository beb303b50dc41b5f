package app

import (
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Dest1on/jobboard/internal/common"
)

// MaxResumeSize is the largest accepted resume, in bytes.
const MaxResumeSize = 10 << 20

type Resume struct {
	Filename string
	Data     []byte
}

// resumeTypes lists the sniffed content types an extension may carry. A
// .docx that mimetype cannot tell apart from a plain zip is still accepted.
func resumeTypes(ext string) []string {
	switch ext {
	case ".pdf":
		return []string{"application/pdf"}
	case ".doc":
		return []string{"application/msword", "application/x-ole-storage"}
	case ".docx":
		return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"}
	}
	return nil
}

// checkResume applies the upload policy and returns the sniffed content type.
func checkResume(r *Resume) (string, error) {
	if len(r.Data) > MaxResumeSize {
		return "", common.NewUploadError(http.StatusBadRequest, "resume exceeds the 10 MiB limit", nil)
	}
	ext := strings.ToLower(filepath.Ext(r.Filename))
	allowed := resumeTypes(ext)
	if len(allowed) == 0 {
		return "", common.NewUploadError(http.StatusBadRequest, "resume must be a .pdf, .doc or .docx file", nil)
	}
	detected := mimetype.Detect(r.Data)
	for m := detected; m != nil; m = m.Parent() {
		if slices.Contains(allowed, m.String()) {
			return detected.String(), nil
		}
	}
	return "", common.NewUploadError(http.StatusBadRequest, "resume content ("+detected.String()+") does not match its "+ext+" extension", nil)
}
