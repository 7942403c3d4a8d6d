package attachment

import (
	"errors"
	"fmt"
)

// DefaultMaxBytes bounds the decoded payload of one attachment
const DefaultMaxBytes = 5 * 1024 * 1024

const maxFilenameLength = 255

// File is a decoded attachment ready to be handed to a mailer
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the decoded payload length in bytes
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

var (
	// ErrInvalidDataURL is returned when fileData is not a base64 data URL
	ErrInvalidDataURL = errors.New("attachment is not a valid base64 data URL")
	// ErrAttachmentTooLarge is returned when the decoded payload exceeds the limit
	ErrAttachmentTooLarge = errors.New("attachment exceeds the maximum size")
	// ErrDangerousFile is returned for executable extensions or content
	ErrDangerousFile = errors.New("attachment type is not allowed")
)

// ValidationError describes why one attachment was rejected
type ValidationError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Filename == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DangerousExtensions lists blocked file extensions
var DangerousExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".vbs": true,
	".js":  true,
	".jar": true,
	".msi": true,
	".scr": true,
	".pif": true,
	".com": true,
	".ps1": true,
	".sh":  true,
}

// PathTraversalChars are removed from client supplied filenames
var PathTraversalChars = []string{
	"..",
	"/",
	"\\",
	"\x00",
}

// MagicSignature is a byte prefix identifying an executable format
type MagicSignature struct {
	Name      string
	Signature []byte
}

// ExecutableMagicSignatures catch executables renamed to harmless extensions
var ExecutableMagicSignatures = []MagicSignature{
	{Name: "Windows PE", Signature: []byte{0x4D, 0x5A}},
	{Name: "Linux ELF", Signature: []byte{0x7F, 0x45, 0x4C, 0x46}},
	{Name: "Mach-O 32-bit", Signature: []byte{0xFE, 0xED, 0xFA, 0xCE}},
	{Name: "Mach-O 64-bit", Signature: []byte{0xFE, 0xED, 0xFA, 0xCF}},
	{Name: "Mach-O 32-bit (reverse)", Signature: []byte{0xCE, 0xFA, 0xED, 0xFE}},
	{Name: "Mach-O 64-bit (reverse)", Signature: []byte{0xCF, 0xFA, 0xED, 0xFE}},
	{Name: "Java Class", Signature: []byte{0xCA, 0xFE, 0xBA, 0xBE}},
}
