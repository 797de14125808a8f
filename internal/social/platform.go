// Package social defines the fixed set of social-media platforms a person
// can be linked on and the per-person link shape returned to clients.
package social

// Platform is a social-media or messaging identity kind. The set is closed
// at the write boundary; values read back from storage are treated as
// untrusted strings and parsed with ParsePlatform.
type Platform string

const (
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
	WhatsApp  Platform = "whatsapp"
	Facebook  Platform = "facebook"
	Website   Platform = "website"
	Signal    Platform = "signal"
)

// Platforms lists every known platform in display order.
var Platforms = []Platform{LinkedIn, Instagram, WhatsApp, Facebook, Website, Signal}

// ParsePlatform is total: unknown values report ok=false instead of failing,
// so an unrecognized platform stored by a newer version never crashes a read.
func ParsePlatform(raw string) (Platform, bool) {
	switch Platform(raw) {
	case LinkedIn, Instagram, WhatsApp, Facebook, Website, Signal:
		return Platform(raw), true
	}
	return "", false
}

// Links holds one nullable handle per platform for a single person.
type Links struct {
	LinkedIn  *string `json:"linkedin"`
	Instagram *string `json:"instagram"`
	WhatsApp  *string `json:"whatsapp"`
	Facebook  *string `json:"facebook"`
	Website   *string `json:"website"`
	Signal    *string `json:"signal"`
}

// Set assigns a handle to the field for platform. Unknown platforms are
// dropped silently.
func (l *Links) Set(platform Platform, handle string) {
	switch platform {
	case LinkedIn:
		l.LinkedIn = &handle
	case Instagram:
		l.Instagram = &handle
	case WhatsApp:
		l.WhatsApp = &handle
	case Facebook:
		l.Facebook = &handle
	case Website:
		l.Website = &handle
	case Signal:
		l.Signal = &handle
	}
}

// Get returns the handle for platform, or nil when absent or unknown.
func (l *Links) Get(platform Platform) *string {
	switch platform {
	case LinkedIn:
		return l.LinkedIn
	case Instagram:
		return l.Instagram
	case WhatsApp:
		return l.WhatsApp
	case Facebook:
		return l.Facebook
	case Website:
		return l.Website
	case Signal:
		return l.Signal
	}
	return nil
}
