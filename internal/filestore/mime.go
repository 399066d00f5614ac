package filestore

import (
	"fmt"
	"mime"
	"path"
	"regexp"
	"sort"
	"strings"

	"galerie/internal/models"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

const defaultContentType = "application/octet-stream"

var extensionRegex = regexp.MustCompile(`^[a-z]{2,4}$`)

// MediaType returns the lowercased media type of a Content-Type header value
// without its parameters.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// ExtensionFor returns the file extension (without the dot) registered for contentType.
func ExtensionFor(contentType string) (string, error) {
	mediaType := MediaType(contentType)
	if mediaType == "" {
		return "", fmt.Errorf("%w: empty", models.ErrUnsupportedType)
	}

	var exts []string
	types.Types.Range(func(k, v any) bool {
		ext, ok := k.(string)
		if !ok {
			return true
		}
		t, ok := v.(types.Type)
		if ok && t.MIME.Value == mediaType && extensionRegex.MatchString(ext) {
			exts = append(exts, ext)
		}
		return true
	})
	if len(exts) == 0 {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedType, mediaType)
	}

	// Several extensions may share a MIME type, keep the choice stable.
	sort.Strings(exts)
	return exts[0], nil
}

// ContentTypeFor infers the MIME type of a stored image from its extension.
func ContentTypeFor(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return defaultContentType
	}
	t := filetype.GetType(ext)
	if t.MIME.Value == "" {
		return defaultContentType
	}
	return t.MIME.Value
}
