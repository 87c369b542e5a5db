package preview

import (
	"strings"
)

// URL returns where /api/preview sends the editor. A known uri wins;
// otherwise the path is built from the post type.
func URL(postID, postType, uri string) string {
	if uri != "" {
		if !strings.HasPrefix(uri, "/") {
			uri = "/" + uri
		}
		return "/preview" + uri
	}
	switch postType {
	case "post":
		return "/preview/post/" + postID
	case "page":
		return "/preview/page/" + postID
	case "flms-courses":
		return "/preview/course/" + postID
	default:
		return "/preview/" + postType + "/" + postID
	}
}

// FromPath recovers the post id and type from a /preview path when the
// session does not carry them. The id is the last segment if it is all
// digits; the type comes from a post, page or course segment.
func FromPath(p string) (postID, postType string) {
	segs := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return "", ""
	}
	last := segs[len(segs)-1]
	if !validPostID.MatchString(last) {
		return "", ""
	}
	for _, s := range segs[:len(segs)-1] {
		switch s {
		case "post":
			return last, "post"
		case "page":
			return last, "page"
		case "course":
			return last, "flms-courses"
		}
	}
	return last, ""
}

// SafeRedirect returns target when it is a local absolute path, else "/".
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/"
	}
	return target
}
