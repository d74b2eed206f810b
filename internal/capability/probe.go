package capability

import (
	"fmt"
	"regexp"
)

// PreferredMimeTypes is the encoder preference order. Higher-efficiency
// codecs come first; plain mp4 is the broad-compatibility fallback.
var PreferredMimeTypes = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
	"video/mp4",
}

// Issue strings reported by Probe.
const (
	IssueRecorder   = "recording API is not available"
	IssueMedia      = "camera and microphone access is not available"
	IssueFullscreen = "fullscreen API is not available"
	IssueCodec      = "no supported video encoding"
)

// Environment describes what the host runtime offers. IsTypeSupported may be
// nil when the recording API is missing.
type Environment struct {
	HasRecorder     bool
	HasMediaDevices bool
	HasFullscreen   bool
	IsTypeSupported func(mimeType string) bool

	UserAgent      string
	MaxTouchPoints int
}

// Result of a capability probe. MimeType is empty when no encoding is
// supported.
type Result struct {
	Supported bool     `json:"supported"`
	Issues    []string `json:"issues"`
	MimeType  string   `json:"mimeType,omitempty"`
}

// Probe runs every check independently and collects all issues. It never
// panics, even if IsTypeSupported does.
func Probe(env Environment) Result {
	res := Result{Issues: []string{}}

	if !env.HasRecorder {
		res.Issues = append(res.Issues, IssueRecorder)
	}
	if !env.HasMediaDevices {
		res.Issues = append(res.Issues, IssueMedia)
	}
	if !env.HasFullscreen {
		res.Issues = append(res.Issues, IssueFullscreen)
	}

	mimeType, err := firstSupported(env.IsTypeSupported)
	switch {
	case err != nil:
		res.Issues = append(res.Issues, fmt.Sprintf("%s: %v", IssueCodec, err))
	case mimeType == "":
		res.Issues = append(res.Issues, IssueCodec)
	default:
		res.MimeType = mimeType
	}

	res.Supported = len(res.Issues) == 0
	return res
}

func firstSupported(isSupported func(string) bool) (mimeType string, err error) {
	if isSupported == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			mimeType, err = "", fmt.Errorf("encoder query failed: %v", r)
		}
	}()
	for _, candidate := range PreferredMimeTypes {
		if isSupported(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

var (
	mobileAgent = regexp.MustCompile(`(?i)android|webos|iphone|ipad|ipod|blackberry|iemobile|opera mini|mobile`)
	macAgent    = regexp.MustCompile(`(?i)macintosh`)
)

// IsMobileDevice is a soft check used to show a warning, not to block.
// iPadOS reports a desktop user agent, so touch points on a Mac agent count.
func IsMobileDevice(env Environment) bool {
	if mobileAgent.MatchString(env.UserAgent) {
		return true
	}
	return env.MaxTouchPoints > 1 && macAgent.MatchString(env.UserAgent)
}
