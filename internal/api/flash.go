package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "flash"

const (
	flashInfo    = "info"
	flashWarning = "warning"
)

type flashMessage struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// addFlash queues a message for the next page render. Messages already
// pending on the request are kept.
func addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	msgs := append(readFlashes(r), flashMessage{Category: category, Message: message})
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns pending messages and clears the cookie.
func popFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	msgs := readFlashes(r)
	if _, err := r.Cookie(flashCookie); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

func readFlashes(r *http.Request) []flashMessage {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []flashMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}
