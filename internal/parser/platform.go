package parser

import "strings"

// Platform is the closed vocabulary of playback platforms.
type Platform string

const (
	PlatformAndroid   Platform = "android"
	PlatformIOS       Platform = "ios"
	PlatformWindows   Platform = "windows"
	PlatformTizen     Platform = "tizen"
	PlatformWebPlayer Platform = "web_player"
	PlatformLinux     Platform = "linux"
	PlatformOSX       Platform = "osx"
	PlatformOther     Platform = "other"
)

// platformRule maps a lower-cased platform string to a label
// when any of its substrings occurs.
type platformRule struct {
	substrings []string
	platform   Platform
}

// platformRules are evaluated in order; the first match wins.
// "Android OS 12 iOS-bridge" is android, not ios.
var platformRules = []platformRule{
	{[]string{"android"}, PlatformAndroid},
	{[]string{"ios"}, PlatformIOS},
	{[]string{"windows"}, PlatformWindows},
	{[]string{"tizen"}, PlatformTizen},
	{[]string{"web_player"}, PlatformWebPlayer},
	{[]string{"linux"}, PlatformLinux},
	{[]string{"os x", "mac os", "macos", "osx"}, PlatformOSX},
}

// NormalizePlatform classifies a free-text platform string
// from an export into the closed Platform vocabulary. Empty
// and unrecognized strings map to PlatformOther.
func NormalizePlatform(raw string) Platform {
	key := strings.ToLower(raw)
	if key == "" {
		return PlatformOther
	}
	for _, rule := range platformRules {
		for _, sub := range rule.substrings {
			if strings.Contains(key, sub) {
				return rule.platform
			}
		}
	}
	return PlatformOther
}
