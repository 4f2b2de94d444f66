// Package media decides how a generated artifact should be rendered.
// Classification is purely lexical: it looks at the URL's file extension and
// never fetches or sniffs the content.
package media

import (
	"regexp"
)

// Kind is the rendering category of a generated artifact.
type Kind int

const (
	// KindImage is rendered as a still image. It is the fallback for
	// anything that is not recognised as video.
	KindImage Kind = iota
	// KindVideo is rendered with a video player.
	KindVideo
)

// videoPattern matches a video extension followed by a query string or the end
// of the URL.
var videoPattern = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov)(\?|$)`)

// Classify returns the Kind for a media URL.
// Empty or malformed input is treated as an image.
func Classify(url string) Kind {
	if videoPattern.MatchString(url) {
		return KindVideo
	}
	return KindImage
}

// String returns "image" or "video".
func (k Kind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "image"
}

// MarshalText implements encoding.TextMarshaler so Kind renders as a string
// in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Caption returns the short line shown under a finished result.
func (k Kind) Caption() string {
	return "Your " + k.String() + " is ready!"
}
