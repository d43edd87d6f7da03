package rewrite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/staticmirror/internal/asset"
)

// mapTransport serves canned bodies keyed by URL and records requests.
type mapTransport struct {
	mu       sync.Mutex
	bodies   map[string]string
	requests []string
}

func (m *mapTransport) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, url)
	body, ok := m.bodies[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return []byte(body), nil
}

func (m *mapTransport) requested(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r == url {
			n++
		}
	}
	return n
}

// newTestEnv returns a transport, a fetcher over it, and a layout in a
// temporary directory.
func newTestEnv(t *testing.T, bodies map[string]string) (*mapTransport, *asset.Fetcher, Layout) {
	t.Helper()
	tr := &mapTransport{bodies: bodies}
	return tr, asset.NewFetcher(tr), NewLayout(filepath.Join(t.TempDir(), "site"))
}

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return root
}

func renderHTML(t *testing.T, root *html.Node) string {
	t.Helper()
	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		t.Fatalf("failed to render HTML: %v", err)
	}
	return sb.String()
}

func attrOf(t *testing.T, root *html.Node, selector, attr string) string {
	t.Helper()
	sel := goquery.NewDocumentFromNode(root).Find(selector)
	if sel.Length() == 0 {
		t.Fatalf("selector %q matched nothing", selector)
	}
	value, _ := sel.First().Attr(attr)
	return value
}
