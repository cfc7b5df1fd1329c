package report

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
)

// jpegQuality is the fixed re-encode quality for normalized receipt images.
const jpegQuality = 70

// imageMIMETypes are the declared types eligible for JPEG re-encoding.
var imageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/heic": true,
}

// Normalize applies the fixed receipt normalization policy: payloads with a
// declared raster image type that actually decode are re-encoded as JPEG,
// everything else passes through unchanged with an extension resolved from
// the declared MIME type. A payload that fails to decode despite its
// declared type is not an error here; it falls through to pass-through.
func Normalize(payload []byte, mimeType string) ([]byte, string) {
	declared := strings.ToLower(strings.TrimSpace(mimeType))
	if imageMIMETypes[declared] {
		if img, err := decodeImage(payload, declared); err == nil {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err == nil {
				return buf.Bytes(), "jpg"
			}
		}
	}
	return payload, extensionForMIMEType(declared)
}

// decodeImage decodes a raster image payload. HEIC needs its own decoder;
// Go's image package does not support it.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if isHEICData(data) || strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return heic.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// extensionForMIMEType resolves the archive entry extension for a declared
// MIME type. Unrecognized types default to "jpg".
func extensionForMIMEType(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/heic":
		return "heic"
	case "application/pdf":
		return "pdf"
	default:
		return "jpg"
	}
}

// isHEICData sniffs the HEIC/HEIF ftyp box signature.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
