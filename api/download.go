package api

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"caseflow-export/logging"
	"caseflow-export/storage"
)

// DownloadExportFile sert un artefact via son URL signée. L'URL porte
// tout le nécessaire (org, path, exp, sig) : pas de JWT, ce qui permet
// le partage du lien pendant sa durée de vie.
func DownloadExportFile(st *storage.Local, exportLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		org := q.Get("org")
		filePath := q.Get("path")
		sig := q.Get("sig")
		exp, err := strconv.ParseInt(q.Get("exp"), 10, 64)
		if org == "" || filePath == "" || sig == "" || err != nil {
			http.Error(w, "Paramètres manquants", http.StatusBadRequest)
			return
		}
		if !st.Verify(org, filePath, sig, exp, time.Now()) {
			http.Error(w, "Lien invalide ou expiré", http.StatusForbidden)
			exportLogger.Write("[DOWNLOAD_DENIED] org=" + org + " path=" + filePath)
			return
		}
		data, err := st.Download(org, filePath)
		if err != nil {
			http.Error(w, "Fichier non trouvé", http.StatusNotFound)
			return
		}
		fileName := path.Base(filePath)
		w.Header().Set("Content-Type", contentTypeFor(fileName))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		w.Write(data)
		exportLogger.Write("[DOWNLOAD] org=" + org + " path=" + filePath)
	}
}

func contentTypeFor(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
