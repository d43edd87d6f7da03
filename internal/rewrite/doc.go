// Package rewrite localizes the resources referenced by a mirrored page.
//
// Three rewriters cooperate on one page:
//   - CSSRewriter rewrites url(...) tokens in stylesheet text
//   - WorkerLocalizer rewrites the worker bootstrap URL embedded in the
//     viewer-model JSON script
//   - HTMLRewriter drives both over a parsed document, localizes script,
//     image, media and icon references, drops <base>, and maps internal
//     anchors to the directory-per-route layout
//
// Asset failures never fail a page. When a resource cannot be downloaded,
// the original reference is kept byte-for-byte and the failure is logged at
// debug level with the offending URL.
package rewrite
