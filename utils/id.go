package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID génère un identifiant unique (uuid v4, sans tirets pour rester
// utilisable dans les noms de fichiers et les URLs).
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
