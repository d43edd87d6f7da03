// Package urlutil provides the URL helpers shared by the mirror and the
// stripper: reference resolution, fragment removal, and the small
// classification predicates that decide whether a reference is a candidate
// for localization.
//
// Every function in this package is pure. Unparseable input never produces
// an error; the input is returned (or classified) unchanged instead so that
// callers can leave the original reference in place.
package urlutil
