package schema

import (
	"fmt"
	"strings"
)

// Grammaire fermée des chemins de champ (voir catalog et tagged fields) :
//
//	path     := [ "risk." ] segment { "." segment }
//	segment  := name [ "[]" ]
//
// "risk." déréférence l'unité de risque associée au dossier (un seul
// saut). "name[]" prend le premier élément du tableau puis continue.
// Tout maillon manquant résout à nil, jamais d'erreur à la résolution.

type PathSegment struct {
	Name      string
	FirstElem bool
}

type PathExpr struct {
	RiskHop  bool
	Segments []PathSegment
}

// ParsePath valide et compile un chemin. Les erreurs ici sont des erreurs
// de configuration, rejetées de manière synchrone à la création.
func ParsePath(s string) (PathExpr, error) {
	var p PathExpr
	s = strings.TrimSpace(s)
	if s == "" {
		return p, fmt.Errorf("empty field path")
	}
	parts := strings.Split(s, ".")
	if parts[0] == "risk" {
		p.RiskHop = true
		parts = parts[1:]
	}
	for _, part := range parts {
		seg := PathSegment{Name: part}
		if strings.HasSuffix(part, "[]") {
			seg.Name = strings.TrimSuffix(part, "[]")
			seg.FirstElem = true
		}
		if !validIdent(seg.Name) {
			return PathExpr{}, fmt.Errorf("invalid path segment %q in %q", part, s)
		}
		p.Segments = append(p.Segments, seg)
	}
	if !p.RiskHop && len(p.Segments) == 0 {
		return PathExpr{}, fmt.Errorf("empty field path")
	}
	return p, nil
}

// MustPath : pour les colonnes fixes déclarées dans le code.
func MustPath(s string) PathExpr {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p PathExpr) String() string {
	var b strings.Builder
	if p.RiskHop {
		b.WriteString("risk")
	}
	for i, seg := range p.Segments {
		if i > 0 || p.RiskHop {
			b.WriteString(".")
		}
		b.WriteString(seg.Name)
		if seg.FirstElem {
			b.WriteString("[]")
		}
	}
	return b.String()
}

func (p PathExpr) IsZero() bool {
	return !p.RiskHop && len(p.Segments) == 0
}

// Resolve traverse le document (JSON décodé). Retourne nil dès qu'un
// maillon manque ou n'a pas la forme attendue.
func (p PathExpr) Resolve(doc map[string]interface{}) interface{} {
	var cur interface{} = doc
	if p.RiskHop {
		m := asMap(cur)
		if m == nil {
			return nil
		}
		cur = m["risk"]
	}
	for _, seg := range p.Segments {
		m := asMap(cur)
		if m == nil {
			return nil
		}
		v, ok := m[seg.Name]
		if !ok {
			return nil
		}
		if seg.FirstElem {
			arr, ok := v.([]interface{})
			if !ok || len(arr) == 0 {
				return nil
			}
			v = arr[0]
		}
		cur = v
	}
	return cur
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
