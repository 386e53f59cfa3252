// SPDX-License-Identifier: MIT

package log

import "net/url"

// MaskURL removes user info from a URL string for safe logging.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	if parsedURL.User != nil {
		parsedURL.User = url.User("redacted")
	}
	return parsedURL.String()
}
