package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieNameFlash = "flash"

// The kinds of flash messages
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-time message shown on the next rendered page
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func setFlash(writer http.ResponseWriter, kind, message string) {
	encoded, err := json.Marshal(&Flash{Type: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameFlash,
		Value:    base64.RawURLEncoding.EncodeToString(encoded),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and unsets the flash message of the given request
func popFlash(writer http.ResponseWriter, request *http.Request) *Flash {
	cookie, err := request.Cookie(cookieNameFlash)
	if err != nil {
		return nil
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameFlash,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	flash := new(Flash)
	if err := json.Unmarshal(decoded, flash); err != nil || flash.Message == "" {
		return nil
	}
	return flash
}
