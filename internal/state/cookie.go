package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrNoCookie = errors.New("no session cookie was stored")

// Cookie is the subset of a browser cookie needed to resume a session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

func SaveCookie(path string, cookie Cookie) error {
	serialized, err := json.Marshal(cookie)
	if err != nil {
		return err
	}
	err = os.WriteFile(path, serialized, 0600)
	if err != nil {
		return fmt.Errorf("write session cookie: %w", err)
	}
	return nil
}

// LoadCookie reads a cookie written by SaveCookie, it returns ErrNoCookie when nothing
// was stored yet.
func LoadCookie(path string) (Cookie, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Cookie{}, ErrNoCookie
	}
	if err != nil {
		return Cookie{}, fmt.Errorf("read session cookie: %w", err)
	}

	var cookie Cookie
	err = json.Unmarshal(contents, &cookie)
	if err != nil {
		return Cookie{}, fmt.Errorf("parse session cookie %s: %w", path, err)
	}
	if cookie.Name == "" || cookie.Value == "" {
		return Cookie{}, ErrNoCookie
	}
	return cookie, nil
}
