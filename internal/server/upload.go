package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const uploadCopyChunk = 1 << 20 // 1 MiB

var errUploadTooLarge = errors.New("upload exceeds the configured size limit")

var allowedMediaExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".webm": true,
	".mp3": true, ".wav": true, ".flac": true, ".ogg": true,
}

// savedUpload is the on-disk result of a validated upload.
type savedUpload struct {
	Path             string
	OriginalFilename string
	Size             int64
}

// saveUpload copies an incoming multipart file into dir in bounded chunks,
// aborting as soon as the configured cap is exceeded instead of buffering
// the whole file first the way gin's SaveUploadedFile does. The on-disk name
// is a random-prefixed, path-traversal-safe version of the original
// filename; the original is kept on the Job for Content-Disposition.
func saveUpload(fh *multipart.FileHeader, dir string, maxBytes int64) (*savedUpload, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedMediaExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	safeName, err := sanitizeFilename(fh.Filename)
	if err != nil {
		return nil, err
	}

	destPath := filepath.Join(dir, safeName)
	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	var written int64
	buf := make([]byte, uploadCopyChunk)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > maxBytes {
				dst.Close()
				os.Remove(destPath)
				return nil, errUploadTooLarge
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				dst.Close()
				os.Remove(destPath)
				return nil, fmt.Errorf("failed to write upload: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			os.Remove(destPath)
			return nil, fmt.Errorf("failed to read upload: %w", readErr)
		}
	}

	if err := dst.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	return &savedUpload{Path: destPath, OriginalFilename: fh.Filename, Size: written}, nil
}

// filenameCharset matches the characters a sanitized filename's stem may
// keep; everything else (spaces, unicode, shell metacharacters) is dropped.
var filenameCharset = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeFilename strips any directory component from name (guarding
// against path traversal via "../" or an absolute path in the multipart
// header), collapses the stem to [A-Za-z0-9_-], and prefixes it with random
// hex so concurrent uploads of the same filename never collide.
func sanitizeFilename(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", errors.New("invalid filename")
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = filenameCharset.ReplaceAllString(stem, "_")
	if stem == "" {
		stem = "file"
	}

	prefix := make([]byte, 8)
	if _, err := rand.Read(prefix); err != nil {
		return "", fmt.Errorf("failed to generate filename prefix: %w", err)
	}

	return hex.EncodeToString(prefix) + "_" + stem + ext, nil
}
