package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-handyadmin/pkg/render"
)

// flashCookie carries toasts across the redirect that follows a mutation.
const flashCookie = "flash"

func setFlash(w http.ResponseWriter, toasts ...render.Toast) {
	if len(toasts) == 0 {
		return
	}
	data, err := json.Marshal(toasts)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending toasts. Malformed cookies are
// dropped.
func takeFlash(w http.ResponseWriter, r *http.Request) []render.Toast {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var toasts []render.Toast
	if err := json.Unmarshal(data, &toasts); err != nil {
		return nil
	}
	return toasts
}

func success(message string) render.Toast {
	return render.Toast{Kind: render.ToastSuccess, Message: message}
}

func failure(message string) render.Toast {
	return render.Toast{Kind: render.ToastError, Message: message}
}
