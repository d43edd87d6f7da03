// Package pipeline turns discovered page URLs into a static mirror.
//
// Each page is processed by a Pipeline of Steps that share a PageContext:
// fetch_page downloads the HTML, parse_html decodes it to UTF-8 and builds
// the document tree, localize_assets rewrites every resource reference, and
// write_page serializes the result to the page's route folder.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Each stage can be tested in isolation with a hand-built PageContext
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between stages
//
// Mirror drives the pipeline over all pages of a run. Pages are processed
// one at a time, and a rate limiter spaces out page fetches. Asset fetches
// are not rate limited. After the last page, a 404.html is derived from
// index.html when the site has none.
package pipeline
