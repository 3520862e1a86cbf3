package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client du moteur de rendu de documents externe : on lui POSTe le contenu
// structuré, il rend les octets du document final (PDF / slides). Tout ce
// qui touche à la mise en page vit de l'autre côté du fil.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Render envoie le contenu et les options de rendu, retourne les octets
// du document. Non-200 = erreur avec le corps de la réponse.
func (c *Client) Render(content map[string]interface{}, options map[string]interface{}) ([]byte, error) {
	payload := map[string]interface{}{
		"content": content,
		"options": options,
	}
	j, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Post(c.BaseURL+"/render", "application/json", bytes.NewReader(j))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		bb, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render HTTP %d: %s", resp.StatusCode, string(bb))
	}
	return io.ReadAll(resp.Body)
}
