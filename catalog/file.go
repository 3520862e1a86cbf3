package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"caseflow-export/utils"
)

// Format de catalog.yaml, calqué sur la config des datasources :
//
//	entities:
//	  case:
//	    fields:
//	      reference: { label: Reference, path: reference, type: text, tags: [AUDIT] }
type catalogFile struct {
	Entities map[string]struct {
		Fields map[string]PlatformField `yaml:"fields"`
	} `yaml:"entities"`
}

// LoadCatalogFile lit un catalogue additionnel depuis la racine projet.
func LoadCatalogFile(file string) ([]PlatformField, error) {
	var cf catalogFile
	root := utils.GetProjectRoot()
	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	var out []PlatformField
	for kind, ent := range cf.Entities {
		for name, f := range ent.Fields {
			f.EntityKind = kind
			f.FieldName = name
			if f.Path == "" {
				f.Path = name
			}
			if f.ValueType == "" {
				f.ValueType = "text"
			}
			for _, t := range f.Tags {
				if _, ok := ParseTag(string(t)); !ok {
					return nil, fmt.Errorf("catalog: unknown tag %q on %s.%s", t, kind, name)
				}
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// MergeCatalog : les entrées extra remplacent les entrées de base de même
// clé, les nouvelles sont ajoutées à la suite.
func MergeCatalog(base, extra []PlatformField) []PlatformField {
	out := make([]PlatformField, len(base))
	copy(out, base)
	index := map[string]int{}
	for i, f := range out {
		index[f.Key()] = i
	}
	for _, f := range extra {
		if i, ok := index[f.Key()]; ok {
			out[i] = f
		} else {
			out = append(out, f)
		}
	}
	return out
}
