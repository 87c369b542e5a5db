package site

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const (
	assetCacheControl = "public, max-age=86400"
	otherCacheControl = "public, max-age=3600"
)

func cacheControlForAsset(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".map":
		return assetCacheControl
	default:
		return otherCacheControl
	}
}

// staticHandler serves StaticFS under /static/. Directory listings are
// never served.
func (s *Site) staticHandler() http.Handler {
	files := http.FileServerFS(s.opts.StaticFS)
	return http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name == "" || strings.HasSuffix(name, "/") || !fs.ValidPath(name) {
			s.fail(w, r, http.StatusNotFound, nil)
			return
		}
		if fi, err := fs.Stat(s.opts.StaticFS, name); err != nil || fi.IsDir() {
			s.fail(w, r, http.StatusNotFound, nil)
			return
		}
		w.Header().Set("Cache-Control", cacheControlForAsset(name))
		files.ServeHTTP(w, r)
	}))
}

// http.ServeFileFS writes its own status, so the first WriteHeader call is
// replaced with the forced one.
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	http.ServeFileFS(&statusOverrideWriter{ResponseWriter: w, status: status}, r, fsys, name)
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	fi, err := fs.Stat(fsys, name)
	return err == nil && !fi.IsDir()
}
