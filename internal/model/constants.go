package model

// MaxHistory is the number of history records the ledger retains.
const MaxHistory = 50

// HistoryTimeLayout is the timestamp layout stored in history records.
const HistoryTimeLayout = "02.01.2006 15:04"

// MaxMessageLen bounds user-facing status strings.
const MaxMessageLen = 70

// PlatformKind identifies which retrieval strategy handles a URL.
type PlatformKind int

const (
	PlatformUnsupported PlatformKind = iota
	PlatformTikTok
	PlatformYouTube
	PlatformInstagram
)

// String returns the lowercase identifier of the platform.
func (p PlatformKind) String() string {
	switch p {
	case PlatformTikTok:
		return "tiktok"
	case PlatformYouTube:
		return "youtube"
	case PlatformInstagram:
		return "instagram"
	default:
		return "unsupported"
	}
}

// Label returns the display label stored in history and used as the
// filename prefix (lowercased).
func (p PlatformKind) Label() string {
	switch p {
	case PlatformTikTok:
		return "TikTok"
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	default:
		return "unknown"
	}
}

// Supported reports whether a retrieval strategy exists for p.
func (p PlatformKind) Supported() bool {
	return p != PlatformUnsupported
}
