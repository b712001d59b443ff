package connection

import "net/url"

// maxRedirectURLs caps how many allowed redirect URLs one connection may
// register.
const maxRedirectURLs = 100

// validURL reports whether raw is an absolute URL with a scheme and host.
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// validateRedirectURLs checks the redirect-URL list and the default redirect
// URL for syntactic validity. Empty inputs are skipped so the same helper
// serves both create (required fields already checked) and partial update.
func validateRedirectURLs(redirectURLs []string, defaultRedirectURL string) error {
	if len(redirectURLs) > 0 {
		if len(redirectURLs) > maxRedirectURLs {
			return newValidationError("Exceeded maximum number of allowed redirect urls")
		}
		for _, u := range redirectURLs {
			if !validURL(u) {
				return newValidationError("redirectUrl is invalid")
			}
		}
	}
	if defaultRedirectURL != "" && !validURL(defaultRedirectURL) {
		return newValidationError("defaultRedirectUrl is invalid")
	}
	return nil
}
