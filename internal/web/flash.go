package web

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot message carried to the next page in a signed and
// encrypted cookie.
type Flash struct {
	Level   FlashLevel `json:"l"`
	Message string     `json:"m"`
}

const flashCookie = "roombook_flash"

type Flashes struct {
	sc *securecookie.SecureCookie
}

// NewFlashes uses random keys when hashKey is empty, so messages do not
// survive a restart.
func NewFlashes(hashKey, blockKey []byte) *Flashes {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((5 * time.Minute).Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Flashes{sc: sc}
}

func (f *Flashes) Set(w http.ResponseWriter, r *http.Request, level FlashLevel, msg string) error {
	encoded, err := f.sc.Encode(flashCookie, Flash{Level: level, Message: msg})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int((5 * time.Minute).Seconds()),
	})
	return nil
}

// Pop reads and clears the pending message, if any.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return Flash{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	var fl Flash
	if err := f.sc.Decode(flashCookie, c.Value, &fl); err != nil {
		return Flash{}, false
	}
	return fl, true
}
