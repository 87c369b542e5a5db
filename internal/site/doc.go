// Package site serves the public pages.
//
// Every HTML route follows the same path: check the page cache (skipped in
// preview), fetch from WordPress, resolve a template, render it into the
// site layout, and store the result. WordPress failures render a 502 page
// and are never cached; not-found results are.
package site
