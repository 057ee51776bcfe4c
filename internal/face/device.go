package face

import (
	"strings"

	"github.com/mssola/useragent"
)

// Normalize fills a missing OS version from the user agent string, if one
// was sent. The model has to be reported explicitly; user agents are not a
// reliable source for it.
func (d Device) Normalize() Device {
	if d.UserAgent == "" || d.OSVersion != "" {
		return d
	}

	ua := useragent.New(d.UserAgent)
	d.OSVersion = ua.OSInfo().Version
	return d
}

// Consistent reports whether a verification device matches the registration
// device: identical model and the same OS major version. Minor OS updates
// between enrollment and verification are expected.
func Consistent(verification, registration Device) bool {
	if verification.Model == "" || registration.Model == "" {
		return false
	}
	if verification.Model != registration.Model {
		return false
	}
	return osMajor(verification.OSVersion) == osMajor(registration.OSVersion)
}

func osMajor(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}
