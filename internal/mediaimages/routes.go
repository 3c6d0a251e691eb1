package mediaimages

import (
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxRouteLength = 255

var imageMimeTypes = []string{"image/gif", "image/jpeg", "image/png", "image/webp"}

var imageExtensions = buildImageExtensions()

// buildImageExtensions maps file extensions onto the accepted image types.
// mime.TypeByExtension consults the host tables, so the common ones are
// pinned here as well.
func buildImageExtensions() map[string]string {
	result := map[string]string{
		".gif":  "image/gif",
		".jpeg": "image/jpeg",
		".jpg":  "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
	}
	for _, value := range imageMimeTypes {
		exts, err := mime.ExtensionsByType(value)
		if err != nil {
			continue
		}
		for _, ext := range exts {
			result[strings.ToLower(ext)] = value
		}
	}
	return result
}

func allowedExtensions() string {
	list := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		list = append(list, ext)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

// normalizeRoute trims a stored image reference and checks it names an image
// file. It returns the clean route and its mime type.
func normalizeRoute(value string) (string, string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", "", fmt.Errorf("route required")
	}
	if utf8.RuneCountInString(clean) > maxRouteLength {
		return "", "", fmt.Errorf("route must be at most %d characters", maxRouteLength)
	}
	if strings.ContainsAny(clean, "\\\x00") || strings.Contains(clean, "..") {
		return "", "", fmt.Errorf("route contains illegal characters")
	}
	name := clean
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(path.Ext(name))
	mediaType, ok := imageExtensions[ext]
	if !ok {
		return "", "", fmt.Errorf("route must point to an image (%s)", allowedExtensions())
	}
	return clean, mediaType, nil
}
