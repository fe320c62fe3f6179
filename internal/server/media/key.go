package media

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Namespaces a media key may live under.
const (
	roomPrefix    = "room-"
	defaultPrefix = "default/"
)

// ValidateKey decodes the escaped path remainder after /media/ and checks it
// against the namespace policy. Each segment is unescaped on its own; a
// segment that fails to decode, or decodes to invalid UTF-8, is kept verbatim.
func ValidateKey(rawPath string) (string, error) {
	segs := strings.Split(rawPath, "/")
	for i, seg := range segs {
		if dec, err := url.PathUnescape(seg); err == nil && utf8.ValidString(dec) {
			segs[i] = dec
		}
	}
	key := strings.Join(segs, "/")

	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	if !strings.HasPrefix(key, roomPrefix) && !strings.HasPrefix(key, defaultPrefix) {
		return "", ErrInvalidKey
	}
	return key, nil
}
