// Package sitemap discovers the pages of a site from its sitemap.
//
// The Discoverer fetches the sitemap document, extracts every <loc> value,
// and turns them into the ordered list of page URLs the mirror will render.
//
// # Wix sitemaps
//
// Wix publishes /sitemap.xml as an index whose only entry is often
// pages-sitemap.xml. When the index resolves to exactly that one child, the
// child is fetched once and its entries are used instead. Deeper nesting is
// not followed.
//
// # Filtering
//
// Discovered URLs are filtered in a fixed order:
//  1. entries ending in .xml are dropped (nested sitemaps)
//  2. entries outside the base URL are dropped
//  3. duplicates are dropped, keeping the first occurrence
//  4. entries whose path matches an ignore glob are dropped
//
// Design decision: XML is queried with antchfx/xmlquery rather than
// unmarshaled into structs, so urlset and sitemapindex documents, with or
// without the sitemaps.org namespace, share one code path.
package sitemap
