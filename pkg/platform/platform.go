// Package platform classifies the host a clip is played on. Classification is
// a pure function of the user-agent string so callers can supply it from any
// environment they like.
package platform

import (
	"fmt"
	"os"
	"regexp"
)

var (
	mobileTokens  = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	iosTokens     = regexp.MustCompile(`(?i)iPad|iPhone|iPod`)
	androidTokens = regexp.MustCompile(`(?i)Android`)
)

// Info describes the runtime environment.
type Info struct {
	IsMobile  bool
	IsIOS     bool
	IsAndroid bool
}

// Detect classifies a user-agent string.
func Detect(ua string) Info {
	return Info{
		IsMobile:  mobileTokens.MatchString(ua),
		IsIOS:     iosTokens.MatchString(ua),
		IsAndroid: androidTokens.MatchString(ua),
	}
}

// String returns a string representation of the platform info
func (i Info) String() string {
	return fmt.Sprintf("Platform{Mobile: %v, iOS: %v, Android: %v}", i.IsMobile, i.IsIOS, i.IsAndroid)
}

// Provider supplies the user-agent string to classify.
type Provider interface {
	UserAgent() string
}

// Static is a Provider returning a fixed user agent.
type Static string

// UserAgent implements Provider.
func (s Static) UserAgent() string { return string(s) }

// EnvVar names the environment variable read by FromEnv.
const EnvVar = "AUTOPLAY_USER_AGENT"

// FromEnv reads the user agent from AUTOPLAY_USER_AGENT.
type FromEnv struct{}

// UserAgent implements Provider.
func (FromEnv) UserAgent() string { return os.Getenv(EnvVar) }
