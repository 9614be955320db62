package app

import (
	"net/url"
	"strings"
)

// Shows up in pg_stat_activity so ingest connections are tellable
// apart from migrations and ad-hoc sessions.
const dbApplicationName = "oddsync-ingest"

// normalizeDBURL stamps the connection URL with the settings every
// ingest connection uses: a default application_name and, when
// configured, lib/pq's disable_prepared_binary_result workaround.
// Values already present in the URL win; key=value DSNs pass through
// untouched.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	changed := false
	if query.Get("application_name") == "" {
		query.Set("application_name", dbApplicationName)
		changed = true
	}
	if disablePreparedBinaryResult && query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		changed = true
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}

// dbNameFromURL extracts the database name for span attribution. Both
// URL-style and key=value DSNs are accepted; unknown shapes yield "".
func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
		if name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		if !strings.HasPrefix(token, "dbname=") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(token, "dbname="))
		name = strings.Trim(name, `"'`)
		if name != "" {
			return name
		}
	}

	return ""
}
