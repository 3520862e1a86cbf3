package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/store"
	"caseflow-export/utils"
)

// Reflet du format de catalog.yaml pour la réécriture
type catalogYAML struct {
	Entities map[string]*entityYAML `yaml:"entities"`
}

type entityYAML struct {
	Fields map[string]catalog.PlatformField `yaml:"fields"`
}

func backupFile(yamlPath string) error {
	root := utils.GetProjectRoot()
	src := filepath.Join(root, yamlPath)
	stat, err := os.Stat(src)
	if err != nil {
		return err
	}
	date := stat.ModTime().Format("20060102-1504")
	bakdir := filepath.Join(root, "archives")
	os.MkdirAll(bakdir, 0755)
	dst := filepath.Join(bakdir, fmt.Sprintf("catalog.yaml.%s", date))
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func main() {
	var orgID string
	var dryRun bool
	var yamlFile string

	flag.StringVar(&orgID, "org", "", "Organization to scan (required)")
	flag.BoolVar(&dryRun, "dry-run", false, "Simulate without update file")
	flag.StringVar(&yamlFile, "yaml", "catalog.yaml", "Catalog yaml file path (relative to project root)")
	flag.Parse()

	if orgID == "" {
		fmt.Println("Usage : catalog-sync --org <id>")
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed loading config.yaml : %v\n", err)
		os.Exit(2)
	}

	// 1. Introspection : clés de champs custom réellement présentes
	s, err := store.Open(cfg.Store.Backend, cfg.Store.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed opening store : %v\n", err)
		os.Exit(2)
	}
	keys, err := s.CustomFieldKeys(orgID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed scanning documents : %v\n", err)
		os.Exit(2)
	}
	sort.Strings(keys)

	// 2. Charger le catalogue existant (fichier absent = catalogue vide)
	var cat catalogYAML
	root := utils.GetProjectRoot()
	dst := filepath.Join(root, yamlFile)
	if data, err := os.ReadFile(dst); err == nil {
		if err := yaml.Unmarshal(data, &cat); err != nil {
			fmt.Fprintf(os.Stderr, "Failed parsing %s : %v\n", yamlFile, err)
			os.Exit(2)
		}
	}
	if cat.Entities == nil {
		cat.Entities = map[string]*entityYAML{}
	}
	ent, ok := cat.Entities["case"]
	if !ok {
		ent = &entityYAML{Fields: map[string]catalog.PlatformField{}}
		cat.Entities["case"] = ent
	}
	if ent.Fields == nil {
		ent.Fields = map[string]catalog.PlatformField{}
	}

	// 3. Proposer une entrée par clé custom inconnue, cheminée sous
	// custom_fields et étiquetée MIGRATION pour rester hors des presets
	// de partage
	var added []string
	for _, k := range keys {
		name := "custom_" + k
		if _, exists := ent.Fields[name]; exists {
			continue
		}
		ent.Fields[name] = catalog.PlatformField{
			Label:     strings.Title(strings.ReplaceAll(k, "_", " ")),
			Path:      "custom_fields." + k,
			ValueType: "text",
			Tags:      []catalog.FieldTag{catalog.TagMigration},
		}
		added = append(added, name)
	}

	if len(added) == 0 {
		fmt.Println("No modification needed. Everything is up-to-date.")
		return
	}
	fmt.Println("New entries summary :")
	fmt.Println("  Fields added :", strings.Join(added, ", "))

	if dryRun {
		fmt.Println("\n--- YAML would be : ---")
		out, _ := yaml.Marshal(cat)
		fmt.Println(string(out))
		return
	}

	if _, err := os.Stat(dst); err == nil {
		if err := backupFile(yamlFile); err != nil {
			fmt.Fprintf(os.Stderr, "Backup error : %v\n", err)
			os.Exit(2)
		}
	}
	yamlOut, err := yaml.Marshal(cat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Marshal YAML error : %v\n", err)
		os.Exit(2)
	}
	if err := os.WriteFile(dst, yamlOut, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Writing YAML error : %v\n", err)
		os.Exit(2)
	}
	fmt.Println("Update done. Backup sent to archives/")
}
