package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ServeSPA serves the pre-built frontend bundle from the static directory,
// falling back to index.html for unknown paths (client-side routing).
func ServeSPA(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requested := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")

		if requested != "" {
			path := filepath.Join(staticDir, requested)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				http.ServeFile(w, r, path)
				return
			}
		}

		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.Error(w, "index.html not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, index)
	}
}
