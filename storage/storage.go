package storage

import "time"

// Store : stockage d'artefacts. Les chemins sont TOUJOURS scopés par
// organisation et namespacés par id de job/run, deux exports ne peuvent
// pas se marcher dessus.
type Store interface {
	Upload(orgID, path string, data []byte, contentType string) (int64, error)
	Download(orgID, path string) ([]byte, error)
	// SignedURL : descripteur de téléchargement à durée limitée.
	SignedURL(orgID, path string, expiresIn time.Duration) (string, error)
}
