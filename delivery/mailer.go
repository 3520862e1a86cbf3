package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"caseflow-export/logging"
	"caseflow-export/utils"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer : transport de livraison, appelé une fois par destinataire.
// L'implémentation réelle (SMTP, API provider) est un collaborateur
// externe ; le service embarque Outbox pour les déploiements sans
// transport branché.
type Mailer interface {
	Send(to, subject, htmlBody string, attachments []Attachment) error
}

// Outbox dépose chaque message dans un dossier (un fichier par envoi,
// pièces jointes à côté) et trace dans le log. Suffisant pour vérifier
// les livraisons en intégration.
type Outbox struct {
	Dir    string
	Logger *logging.Logger
}

func NewOutbox(dir string, logger *logging.Logger) *Outbox {
	return &Outbox{Dir: dir, Logger: logger}
}

func (o *Outbox) Send(to, subject, htmlBody string, attachments []Attachment) error {
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return err
	}
	id := utils.NewID()
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", to)
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Date: %s\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Content-Type: text/html\n\n")
	b.WriteString(htmlBody)
	b.WriteString("\n")
	for _, att := range attachments {
		attPath := filepath.Join(o.Dir, id+"_"+att.Filename)
		if err := os.WriteFile(attPath, att.Data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(&b, "[attachment] %s (%s, %d bytes)\n", att.Filename, att.ContentType, len(att.Data))
	}
	if err := os.WriteFile(filepath.Join(o.Dir, id+".eml"), []byte(b.String()), 0644); err != nil {
		return err
	}
	o.Logger.Writef("[OUTBOX] to=%s subject=%q attachments=%d", to, subject, len(attachments))
	return nil
}
