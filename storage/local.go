package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Local : arborescence <root>/<orgID>/<path> sur disque, URLs signées
// HMAC servies par l'API de téléchargement.
type Local struct {
	Root    string
	BaseURL string // ex: http://localhost:8085
	Secret  string
}

func NewLocal(root, baseURL, secret string) *Local {
	return &Local{Root: root, BaseURL: baseURL, Secret: secret}
}

func (l *Local) fullPath(orgID, path string) (string, error) {
	// contrôle sur le chemin brut : Clean aurait déjà résorbé les ".."
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid artifact path %q", path)
		}
	}
	return filepath.Join(l.Root, orgID, filepath.Clean("/"+path)), nil
}

func (l *Local) Upload(orgID, path string, data []byte, contentType string) (int64, error) {
	full, err := l.fullPath(orgID, path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (l *Local) Download(orgID, path string) ([]byte, error) {
	full, err := l.fullPath(orgID, path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// SignedURL signe (org, path, expiration) en HMAC-SHA256. L'API vérifie
// la signature et l'expiration avant de servir le fichier.
func (l *Local) SignedURL(orgID, path string, expiresIn time.Duration) (string, error) {
	exp := time.Now().Add(expiresIn).Unix()
	sig := l.Sign(orgID, path, exp)
	q := url.Values{}
	q.Set("org", orgID)
	q.Set("path", path)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)
	return l.BaseURL + "/api/exports/file?" + q.Encode(), nil
}

func (l *Local) Sign(orgID, path string, exp int64) string {
	mac := hmac.New(sha256.New, []byte(l.Secret))
	fmt.Fprintf(mac, "%s|%s|%d", orgID, path, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify : signature valable ET non expirée.
func (l *Local) Verify(orgID, path, sig string, exp int64, now time.Time) bool {
	if now.Unix() > exp {
		return false
	}
	expected := l.Sign(orgID, path, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}
