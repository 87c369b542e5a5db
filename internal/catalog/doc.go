// Package catalog filters and sorts the course list behind /courses/.
//
// Filters travel in the query string (q, d, min, max, sort) so result
// pages can be shared and cached per URL.
package catalog
