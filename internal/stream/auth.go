// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"net/url"
	"strings"
)

// AddAuthentication embeds user:pass@ right after the scheme. URLs without
// a scheme, or whose authority already carries credentials, are returned
// unchanged. Reserved characters in the credentials are escaped.
func AddAuthentication(rawURL, username, password string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	authority := rest
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		authority = rest[:end]
	}
	if strings.Contains(authority, "@") {
		return rawURL
	}
	return rawURL[:idx+3] + url.UserPassword(username, password).String() + "@" + rest
}
