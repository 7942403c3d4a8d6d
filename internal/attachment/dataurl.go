// Package attachment decodes the optional file a visitor sends with the
// contact form and rejects anything that should not reach a mailbox.
package attachment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const genericContentType = "application/octet-stream"

// ParseDataURL decodes fileData of the form data:<mime>;base64,<payload>.
// An empty fileData means no attachment and returns nil, nil. fileType wins
// over the media type in the URL, and both lose to content sniffing when
// they are empty or generic.
func ParseDataURL(fileData, fileName, fileType string, maxBytes int64) (*File, error) {
	fileData = strings.TrimSpace(fileData)
	if fileData == "" {
		return nil, nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	declared, payload, err := splitDataURL(fileData)
	if err != nil {
		return nil, &ValidationError{Filename: fileName, Reason: err.Error(), Err: ErrInvalidDataURL}
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, tooLarge(fileName, maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, &ValidationError{Filename: fileName, Reason: "invalid base64 payload", Err: ErrInvalidDataURL}
		}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Filename: fileName, Reason: "empty attachment", Err: ErrInvalidDataURL}
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(fileName, maxBytes)
	}

	if t := normalizeType(fileType); t != "" {
		declared = t
	}

	detected := mimetype.Detect(data)
	contentType := declared
	if contentType == "" || contentType == genericContentType {
		contentType = detected.String()
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = mt
		}
	}

	name := SanitizeFilename(fileName)
	if name == "" {
		name = "attachment" + detected.Extension()
	}

	if IsDangerousExtension(name) {
		return nil, &ValidationError{
			Filename: name,
			Reason:   fmt.Sprintf("file extension %s is not allowed", strings.ToLower(filepath.Ext(name))),
			Err:      ErrDangerousFile,
		}
	}
	if sig := DetectExecutableMagicBytes(data); sig != nil {
		return nil, &ValidationError{
			Filename: name,
			Reason:   "executable content detected: " + sig.Name,
			Err:      ErrDangerousFile,
		}
	}

	return &File{
		Filename:    name,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func splitDataURL(s string) (mediaType, payload string, err error) {
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return "", "", fmt.Errorf("missing data: scheme")
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", "", fmt.Errorf("missing payload separator")
	}

	params := strings.Split(header, ";")
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return "", "", fmt.Errorf("payload is not base64 encoded")
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return "", "", fmt.Errorf("empty payload")
	}

	return normalizeType(params[0]), payload, nil
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if idx := strings.Index(t, ";"); idx != -1 {
		t = strings.TrimSpace(t[:idx])
	}
	if t != "" && !strings.Contains(t, "/") {
		return ""
	}
	return t
}

func tooLarge(fileName string, maxBytes int64) error {
	return &ValidationError{
		Filename: fileName,
		Reason:   fmt.Sprintf("file must be at most %d bytes", maxBytes),
		Err:      ErrAttachmentTooLarge,
	}
}

// SanitizeFilename drops path components and traversal sequences and caps
// the length at 255 bytes while keeping the extension.
func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}

	// Removing one sequence can join the halves of another, so repeat
	for {
		cleaned := filename
		for _, char := range PathTraversalChars {
			cleaned = strings.ReplaceAll(cleaned, char, "")
		}
		if cleaned == filename {
			break
		}
		filename = cleaned
	}

	filename = filepath.Base(filename)
	if filename == "." {
		return ""
	}

	if len(filename) > maxFilenameLength {
		ext := filepath.Ext(filename)
		if len(ext) >= maxFilenameLength {
			ext = ""
		}
		name := filename[:len(filename)-len(ext)]
		if len(name) > maxFilenameLength-len(ext) {
			name = strings.TrimRight(name[:maxFilenameLength-len(ext)], ".")
		}
		filename = name + ext
	}

	return filename
}

// IsDangerousExtension reports whether filename has a blocked extension
func IsDangerousExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return DangerousExtensions[ext]
}

// DetectExecutableMagicBytes returns the matching signature, or nil
func DetectExecutableMagicBytes(data []byte) *MagicSignature {
	for i := range ExecutableMagicSignatures {
		sig := &ExecutableMagicSignatures[i]
		if bytes.HasPrefix(data, sig.Signature) {
			return sig
		}
	}
	return nil
}
