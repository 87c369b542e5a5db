package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/pathutil"
	"github.com/beaconhillfe/bhfe-web/internal/preview"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// Preview results, used as metric labels.
const (
	previewEnabled      = "enabled"
	previewUnauthorized = "unauthorized"
	previewInactive     = "inactive"
	previewMissingID    = "missing_id"
	previewNotFound     = "not_found"
	previewError        = "error"
	previewRendered     = "rendered"
)

func (s *Site) countPreview(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.IncPreview(result)
	}
}

// handlePreview renders draft content. The post comes from the session,
// else from the last numeric segment of the path.
func (s *Site) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Cache-Control", "no-store")

	sess := s.preview.Read(ctx, r)
	if !sess.Enabled {
		s.countPreview(previewInactive)
		http.Redirect(w, r, "/api/exit-preview", http.StatusTemporaryRedirect)
		return
	}

	postID, postType := sess.PostID, sess.PostType
	if postID == "" {
		postID, postType = preview.FromPath(r.URL.Path)
	}
	banner := &bannerData{PostType: postType, PostID: postID, ExitTo: exitTarget(r.URL.Path)}
	s.cache.CountBypass()

	if postID == "" {
		s.countPreview(previewMissingID)
		s.previewMessage(w, r, http.StatusBadRequest, banner, messageData{
			Heading: "Preview Error",
			Lines:   []string{"No post ID found for preview."},
		})
		return
	}

	n, err := s.src.PreviewContent(ctx, postID)
	if err != nil {
		s.countPreview(previewError)
		s.loggerFor(ctx).Error(ctx, err, "preview fetch failed", "post_id", postID, "post_type", postType)
		m := messageData{
			Heading: "Preview Error",
			Lines:   []string{"An error occurred while loading the preview."},
		}
		if !s.opts.Production {
			m.Detail = err.Error()
		}
		s.previewMessage(w, r, http.StatusBadGateway, banner, m)
		return
	}
	if wp.IsNil(n) {
		s.countPreview(previewNotFound)
		s.previewMessage(w, r, http.StatusNotFound, banner, messageData{
			Heading: "Preview Not Available",
			Lines:   []string{"Unable to load preview content. This might be because:"},
			Items: []string{
				"The post doesn't exist",
				"You don't have permission to view it",
				"The preview token has expired",
			},
		})
		return
	}

	banner.PostType = string(n.Type())
	if id := databaseID(n); id != 0 {
		banner.PostID = strconv.Itoa(id)
	}
	p, err := s.renderNode(ctx, n, banner)
	if err != nil {
		s.countPreview(previewError)
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	s.countPreview(previewRendered)
	s.write(w, r, p, pagecache.Bypass)
}

func (s *Site) previewMessage(w http.ResponseWriter, r *http.Request, status int, banner *bannerData, m messageData) {
	p, err := s.message(r.Context(), status, "Preview Mode", m, banner)
	if err != nil {
		s.fail(w, r, status, err)
		return
	}
	s.write(w, r, p, pagecache.Bypass)
}

// exitTarget is the public page to return to when leaving a preview.
// Id-addressed previews have no public path, so they return home.
func exitTarget(previewPath string) string {
	if id, _ := preview.FromPath(previewPath); id != "" {
		return "/"
	}
	uri, ok := pathutil.CleanURI(strings.TrimPrefix(previewPath, "/preview"))
	if !ok {
		return "/"
	}
	return uri
}

func databaseID(n wp.Node) int {
	switch v := n.(type) {
	case *wp.Page:
		return v.DatabaseID
	case *wp.Post:
		return v.DatabaseID
	case *wp.Course:
		return v.DatabaseID
	case *wp.Taxonomy:
		return v.DatabaseID
	case *wp.Unknown:
		return v.DatabaseID
	}
	return 0
}

// handleAPIPreview is where WordPress sends an editor who clicked
// Preview. A token is verified with Faust before the session is issued.
func (s *Site) handleAPIPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	postID := firstOf(q.Get("p"), q.Get("post_id"))
	token := firstOf(q.Get("preview_id"), q.Get("token"))
	postType := orDefault(q.Get("post_type"), "post")
	uri := q.Get("uri")

	if postID == "" && token == "" {
		s.writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Missing preview parameters"})
		return
	}

	switch {
	case token != "":
		a, err := s.src.Authorize(ctx, token)
		if err != nil {
			s.countPreview(previewUnauthorized)
			s.loggerFor(ctx).Warn(ctx, "preview token rejected", "error", err)
			s.writeJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "Invalid preview token"})
			return
		}
		if a.PostID > 0 {
			postID = strconv.Itoa(a.PostID)
		}
		if a.PostType != "" {
			postType = a.PostType
		}
		if a.URI != "" {
			uri = a.URI
		}
	case s.opts.Production:
		// production accepts token-verified previews only
		s.countPreview(previewUnauthorized)
		s.writeJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "Invalid preview token"})
		return
	}

	if err := s.preview.Enable(ctx, w, postID, postType); err != nil {
		if errors.Is(err, preview.ErrDisabled) {
			s.loggerFor(ctx).Warn(ctx, "preview requested but no signing key is configured")
			s.writeJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "Preview is not configured"})
			return
		}
		s.writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Missing post ID"})
		return
	}
	s.countPreview(previewEnabled)

	if uri != "" {
		if clean, ok := pathutil.CleanURI(uri); ok {
			uri = clean
		} else {
			uri = ""
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, preview.URL(postID, postType, uri), http.StatusTemporaryRedirect)
}

func (s *Site) handleExitPreview(w http.ResponseWriter, r *http.Request) {
	s.preview.Clear(w)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, preview.SafeRedirect(r.URL.Query().Get("redirect")), http.StatusTemporaryRedirect)
}

func (s *Site) handleExitPreviewPost(w http.ResponseWriter, r *http.Request) {
	s.preview.Clear(w)
	s.writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Site) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.loggerFor(ctx).Warn(ctx, "failed to encode JSON response", "error", err)
	}
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
