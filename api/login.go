package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"caseflow-export/auth"
	"caseflow-export/config"
	"caseflow-export/logging"
)

func LoginHandler(cfg *config.Config, users *auth.UsersFile, loginLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "JSON invalide", http.StatusBadRequest)
			log.Println("LOGIN FAIL (bad json) user=" + req.Username)
			return
		}
		username := req.Username
		var userHash, userSalt, org string
		isAdmin := false

		if cfg.Auth.UserBackend == "file" {
			u, ok := users.Users[username]
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (no user) user=" + username)
				return
			}
			userHash, userSalt = u.Hash, u.Salt
			isAdmin = u.Admin
			org = u.Org

			passHash, _ := auth.ApplyHashMacro(cfg.Auth.HashMacro, req.Password, username, userSalt, cfg.Auth.Salt)
			if passHash != userHash {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (wrong pass) user=" + username)
				return
			}
		} else if cfg.Auth.UserBackend == "mysql" || cfg.Auth.UserBackend == "postgres" || cfg.Auth.UserBackend == "sqlite" {
			driver := cfg.Auth.UserBackend
			if driver == "sqlite" {
				driver = "sqlite3"
			}
			db, err := sql.Open(driver, cfg.Auth.DBDSN)
			if err != nil {
				http.Error(w, "Erreur base de données", http.StatusInternalServerError)
				loginLogger.Write("LOGIN FAIL (db open) user=" + username)
				return
			}
			defer db.Close()

			userHash, userSalt, isAdmin, org, err = auth.GetUserFromDB(db, cfg.Auth.UserRequest, username, req.Password)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (db no user) user=" + username)
				return
			}
			// si DBPassHash est vrai, le hash n'a pas été vérifié par la
			// requête SQL : on le vérifie ici
			if cfg.Auth.DBPassHash {
				passHash, _ := auth.ApplyHashMacro(cfg.Auth.DBHashMacro, req.Password, username, userSalt, cfg.Auth.Salt)
				if passHash != userHash {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					loginLogger.Write("LOGIN FAIL (db wrong pass) user=" + username)
					return
				}
			}
		} else {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			loginLogger.Write("LOGIN FAIL (bad backend) user=" + username)
			return
		}
		tokenString, err := auth.GenerateJWT(cfg.JWT.Secret, username, org, isAdmin, cfg.JWT.ExpirationMinutes)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			loginLogger.Write("LOGIN FAIL (jwt error) user=" + username)
			return
		}
		resp := map[string]string{"token": tokenString}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		loginLogger.Write("LOGIN OK user=" + username + " org=" + org)
	}
}
