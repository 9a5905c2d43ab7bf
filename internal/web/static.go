package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticFiles serves GET and HEAD requests for files under dir. Missing
// files and directories fall through to the next stage.
func StaticFiles(dir string) Middleware {
	return func(next http.Handler) http.Handler {
		if dir == "" {
			return next
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			clean := path.Clean("/" + r.URL.Path)
			full := filepath.Join(root, filepath.FromSlash(clean))
			if !strings.HasPrefix(full, root) {
				next.ServeHTTP(w, r)
				return
			}
			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				next.ServeHTTP(w, r)
				return
			}
			http.ServeFile(w, r, full)
		})
	}
}
