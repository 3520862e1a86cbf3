package audit

import (
	"encoding/json"
	"time"

	"caseflow-export/logging"
)

type Event struct {
	Kind     string    `json:"kind"` // export.created, export.completed, ...
	OrgID    string    `json:"org_id"`
	Actor    string    `json:"actor,omitempty"`
	ObjectID string    `json:"object_id,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Sink : journal d'audit best-effort. Log ne retourne rien et ne remonte
// jamais : un échec d'audit ne doit ni bloquer ni faire échouer un export.
type Sink struct {
	logger *logging.Logger
}

func NewSink(logger *logging.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) Log(e Event) {
	defer func() {
		// un sink d'audit qui panique ne doit pas emporter l'appelant
		recover()
	}()
	if s == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.logger.Write("[AUDIT] " + string(b))
}
