package middleware

import (
	"encoding/base64"
	"net/http"
)

const (
	FlashError   = "flash_error"
	FlashSuccess = "flash_success"
	// FlashStudentID pre-fills the student id on the set-password form.
	FlashStudentID = "flash_student_id"
)

// SetFlash stores a one-shot message for the next page. Values are base64
// encoded so any text survives the cookie.
func SetFlash(w http.ResponseWriter, name, message string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.StdEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   300, // 5 minutes (enough time for redirect)
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash reads a flash message and expires its cookie. Missing or
// undecodable cookies read as "".
func PopFlash(w http.ResponseWriter, r *http.Request, name string, secure bool) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	decoded, err := base64.StdEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// RedirectWithFlash sets a flash message and answers with 303 See Other.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, target, name, message string, secure bool) {
	SetFlash(w, name, message, secure)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
