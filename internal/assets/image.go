package assets

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var imageExtensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

// DetectImage sniffs the payload and returns its content type and canonical
// extension. Anything that does not decode as png/jpeg/gif/webp is rejected
// before a single byte goes to the asset host.
func DetectImage(data []byte) (contentType string, ext string, err error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("not a supported image: %w", err)
	}

	ct, ok := imageContentTypes[format]
	if !ok {
		return "", "", fmt.Errorf("unsupported image format %q", format)
	}

	return ct, imageExtensions[format], nil
}
