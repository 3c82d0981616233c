package archive

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// Scheme is the locator scheme for media left inside the archive.
const Scheme = "zim://"

// MediaNamespace is the archive namespace holding images.
const MediaNamespace = "I"

// MediaLocator builds the locator for an image filename:
// zim://I/<filename>.
func MediaLocator(filename string) string {
	return Scheme + MediaNamespace + "/" + filename
}

// ParseLocator splits a zim:// locator into its archive path. It accepts
// only the media namespace; anything else is rejected.
func ParseLocator(locator string) (string, error) {
	rest, ok := strings.CutPrefix(locator, Scheme)
	if !ok {
		return "", fmt.Errorf("not a zim locator: %q", locator)
	}
	ns, name, ok := strings.Cut(rest, "/")
	if !ok || ns != MediaNamespace || name == "" {
		return "", fmt.Errorf("malformed zim locator: %q", locator)
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid media name in locator: %q", locator)
	}
	return ns + "/" + name, nil
}

// CommonsURL reconstructs the Wikimedia Commons URL for a media filename
// using the md5 directory layout Wikimedia uses for uploads.
func CommonsURL(filename string) string {
	filename = strings.ReplaceAll(filename, " ", "_")
	sum := fmt.Sprintf("%x", md5.Sum([]byte(filename)))
	return fmt.Sprintf("https://upload.wikimedia.org/wikipedia/commons/%s/%s/%s", sum[:1], sum[:2], filename)
}
