package auth

import (
	"database/sql"

	"caseflow-export/store"
)

// GetAccessRestrictions retourne les valeurs de filtre autorisées par
// dimension ("status", "category") pour un utilisateur non-admin.
// Résolution : users.yaml d'abord, puis requête SQL si configurée. Une
// map vide signifie aucun plafond.
func GetAccessRestrictions(username string, isAdmin bool, users *UsersFile, db *sql.DB, accessQuery string) map[string][]string {
	if isAdmin {
		return nil
	}
	result := map[string][]string{}

	if users != nil {
		if userInfo, ok := users.Users[username]; ok {
			for dim, vals := range userInfo.Access {
				if len(vals) > 0 {
					result[dim] = append(result[dim], vals...)
				}
			}
		}
	}

	// fallback SQL : la requête doit retourner (dimension, valeur)
	if len(result) == 0 && db != nil && accessQuery != "" {
		rows, err := db.Query(accessQuery, username)
		if err != nil {
			return result
		}
		defer rows.Close()
		for rows.Next() {
			var dim, val string
			if err := rows.Scan(&dim, &val); err == nil {
				result[dim] = append(result[dim], val)
			}
		}
	}

	return result
}

// CheckFilterAccess vérifie que les filtres demandés restent dans les
// valeurs autorisées. Un filtre vide sur une dimension plafonnée est
// aussi un refus : il reviendrait à tout voir.
func CheckFilterAccess(f store.CaseFilters, restrictions map[string][]string) []string {
	problems := []string{}
	if len(restrictions) == 0 {
		return problems
	}
	check := func(dim string, requested []string) {
		allowed, capped := restrictions[dim]
		if !capped {
			return
		}
		if len(requested) == 0 {
			problems = append(problems, "filter:"+dim+":required")
			return
		}
		set := map[string]bool{}
		for _, v := range allowed {
			set[v] = true
		}
		for _, v := range requested {
			if !set[v] {
				problems = append(problems, "filter:"+dim+":forbidden:"+v)
			}
		}
	}
	check("status", f.Status)
	check("category", f.Category)
	return problems
}
