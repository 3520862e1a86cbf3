package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"caseflow-export/utils"
)

// Config regroupe toute la configuration du service (config.yaml).
type Config struct {
	Server struct {
		Listen  string `yaml:"listen"`
		BaseURL string `yaml:"base_url"` // préfixe des URLs de téléchargement signées
		LogDir  string `yaml:"log_dir"`
	} `yaml:"server"`
	JWT struct {
		Secret            string `yaml:"secret"`
		ExpirationMinutes int    `yaml:"expiration_minutes"`
	} `yaml:"jwt"`
	Auth struct {
		UserBackend string `yaml:"user_backend"` // "file", "mysql", "postgres", "sqlite"
		UserFile    string `yaml:"user_file"`
		HashMacro   string `yaml:"hash_macro"`
		Salt        string `yaml:"salt"`
		DBDSN       string `yaml:"db_dsn"`
		UserRequest string `yaml:"user_request"` // ex: SELECT hash, salt, is_admin FROM users WHERE name = ?
		DBHashMacro string `yaml:"db_hash_macro"`
		DBPassHash  bool   `yaml:"db_pass_hash"`
	} `yaml:"auth"`
	Store struct {
		Backend string `yaml:"backend"` // "sqlite", "mysql", "postgres"
		DSN     string `yaml:"dsn"`     // mysql: ajouter parseTime=true
	} `yaml:"store"`
	Storage struct {
		Dir    string `yaml:"dir"`    // racine des artefacts générés
		Secret string `yaml:"secret"` // clé HMAC des URLs signées
	} `yaml:"storage"`
	Export struct {
		Workers        int    `yaml:"workers"`         // taille du pool (défaut 2)
		RetentionHours int    `yaml:"retention_hours"` // durée de vie des fichiers (défaut 168 = 7j)
		CatalogFile    string `yaml:"catalog_file"`    // catalog.yaml (optionnel, complète le catalogue embarqué)
	} `yaml:"export"`
	Schedule struct {
		TickSeconds int    `yaml:"tick_seconds"` // intervalle de polling (défaut 60)
		RenderURL   string `yaml:"render_url"`   // service externe de rendu de documents
		OutboxDir   string `yaml:"outbox_dir"`   // dépôt des mails sortants
	} `yaml:"schedule"`
}

func Load(file string) (*Config, error) {
	var cfg Config
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Export.Workers <= 0 {
		c.Export.Workers = 2
	}
	if c.Export.RetentionHours <= 0 {
		c.Export.RetentionHours = 168
	}
	if c.Schedule.TickSeconds <= 0 {
		c.Schedule.TickSeconds = 60
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "exports"
	}
	if c.Server.LogDir == "" {
		c.Server.LogDir = "./logs"
	}
}
