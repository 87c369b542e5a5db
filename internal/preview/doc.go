// Package preview manages the draft preview session.
//
// An editor enters preview through /api/preview. The server then sets a
// single signed cookie (bhfe_draft) that carries the post id, post type
// and expiry. Requests carrying a valid cookie bypass the page cache and
// fetch drafts with asPreview. The cookie is authenticated with a
// cryptoutil.Signer, so a client cannot forge preview access or swap post
// ids.
package preview
