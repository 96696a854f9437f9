package parser

import "testing"

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		raw  string
		want Platform
	}{
		// Typical export strings
		{"Android OS 12 API 31 (samsung, SM-G991B)", PlatformAndroid},
		{"Android OS 12", PlatformAndroid},
		{"iOS 16.1 (iPhone14,2)", PlatformIOS},
		{"Windows 10 (10.0.19045; x64)", PlatformWindows},
		{"tizen", PlatformTizen},
		{"web_player windows 10;chrome 108.0.0.0;desktop", PlatformWindows},
		{"web_player linux ;chrome 96.0;desktop", PlatformWebPlayer},
		{"Linux [x86-64 0]", PlatformLinux},
		{"OS X 10.15.7 [x86 8]", PlatformOSX},
		{"Mac OS 13.0", PlatformOSX},
		{"macOS Ventura", PlatformOSX},
		{"osx", PlatformOSX},

		// Priority: earlier rules win
		{"android ios", PlatformAndroid},
		{"ios linux", PlatformIOS},

		// Case-insensitive
		{"ANDROID", PlatformAndroid},
		{"WINDOWS", PlatformWindows},

		// Unknown
		{"", PlatformOther},
		{"PlayStation 4", PlatformOther},
		{"cast_to_device", PlatformOther},
	}

	for _, tt := range tests {
		testName := tt.raw
		if testName == "" {
			testName = "empty_string"
		}
		t.Run(testName, func(t *testing.T) {
			got := NormalizePlatform(tt.raw)
			if got != tt.want {
				t.Errorf(
					"NormalizePlatform(%q) = %q, want %q",
					tt.raw, got, tt.want,
				)
			}
		})
	}
}

func TestPlatformRulesCoverVocabulary(t *testing.T) {
	seen := map[Platform]bool{}
	for _, r := range platformRules {
		seen[r.platform] = true
	}
	for _, p := range []Platform{
		PlatformAndroid, PlatformIOS, PlatformWindows,
		PlatformTizen, PlatformWebPlayer, PlatformLinux,
		PlatformOSX,
	} {
		if !seen[p] {
			t.Errorf("no rule produces %q", p)
		}
	}
}
