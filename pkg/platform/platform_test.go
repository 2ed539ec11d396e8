package platform

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Info
	}{
		{
			name: "desktop chrome",
			ua:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			want: Info{},
		},
		{
			name: "iphone safari",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
			want: Info{IsMobile: true, IsIOS: true},
		},
		{
			name: "ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)",
			want: Info{IsMobile: true, IsIOS: true},
		},
		{
			name: "android chrome",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			want: Info{IsMobile: true, IsAndroid: true},
		},
		{
			name: "opera mini",
			ua:   "Opera/9.80 (J2ME/MIDP; Opera Mini/9.80)",
			want: Info{IsMobile: true},
		},
		{
			name: "lower case tokens",
			ua:   "some android webview",
			want: Info{IsMobile: true, IsAndroid: true},
		},
		{
			name: "empty",
			ua:   "",
			want: Info{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.ua); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.ua, got, tt.want)
			}
		})
	}
}

func TestProviders(t *testing.T) {
	if got := Static("iPhone").UserAgent(); got != "iPhone" {
		t.Errorf("Static.UserAgent() = %q", got)
	}

	t.Setenv(EnvVar, "Android test")
	if !Detect(FromEnv{}.UserAgent()).IsAndroid {
		t.Error("FromEnv should read the user agent from the environment")
	}
}
