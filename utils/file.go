package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docuquery/rag-be/types"
)

// SaveUpload writes uploaded bytes into the upload directory with a timestamp
// suffix so repeated uploads of the same file name never collide.
// Returns the destination path and error if any
func SaveUpload(uploadDir, fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	ext := filepath.Ext(fileName)
	baseFileName := strings.TrimSuffix(filepath.Base(fileName), ext)
	timestamp := time.Now().Unix()
	destPath := filepath.Join(uploadDir, fmt.Sprintf("%s_%d%s", baseFileName, timestamp, ext))

	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}
	return destPath, nil
}

// ContentTypeFromName maps a file extension to the supported upload content
// types. Unknown extensions return an empty string.
func ContentTypeFromName(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return types.ContentTypePDF
	case ".pptx":
		return types.ContentTypePPTX
	default:
		return ""
	}
}
