package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"

	"github.com/jarvis-assistant/jarvis/internal/observability"
)

// validTwilioSignature checks the X-Twilio-Signature header: base64 of
// HMAC-SHA1 over the full request URL followed by every form parameter name
// and value in lexical parameter order, keyed with the account's auth token.
func validTwilioSignature(authToken, fullURL string, form url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}

	names := make([]string, 0, len(form))
	for name := range form {
		names = append(names, name)
	}
	sort.Strings(names)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(fullURL))
	for _, name := range names {
		for _, value := range form[name] {
			mac.Write([]byte(name))
			mac.Write([]byte(value))
		}
	}
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// requireTwilioSignature rejects webhook requests whose signature does not
// verify against the configured auth token. publicURL is the externally
// visible base URL Twilio signed against, which may differ from the Host
// header behind a proxy.
func (s *Server) requireTwilioSignature(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		fullURL := s.publicURL + r.URL.RequestURI()
		if !validTwilioSignature(s.twilioAuthToken, fullURL, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
			observability.RecordSignatureFailure()
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}
