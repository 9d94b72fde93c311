package locator

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// DefaultCacheSize is the number of parsed documents a Locator keeps.
const DefaultCacheSize = 32

type cached struct {
	sum [sha256.Size]byte
	doc *workflow.Document
}

// Locator serves read-only queries over workflow files, reusing parsed
// documents while the file's content is unchanged. Files are still read on
// every call; only parsing is skipped.
// Documents it returns are shared and must not be modified.
type Locator struct {
	store *workflow.Store
	cache *lru.Cache[string, cached]
}

// New returns a Locator reading through store. A size of zero or less
// disables caching.
func New(store *workflow.Store, size int) (*Locator, error) {
	l := &Locator{store: store}
	if size > 0 {
		c, err := lru.New[string, cached](size)
		if err != nil {
			return nil, err
		}
		l.cache = c
	}
	return l, nil
}

// Store returns the store the locator reads through.
func (l *Locator) Store() *workflow.Store { return l.store }

// Document returns the parsed workflow at path.
func (l *Locator) Document(path string) (*workflow.Document, error) {
	if l.cache == nil {
		return l.store.Parse(path)
	}
	key := l.store.Resolve(path)
	data, err := l.store.ReadWorkflow(path)
	if err != nil {
		l.cache.Remove(key)
		return nil, err
	}
	sum := sha256.Sum256(data)
	if c, ok := l.cache.Get(key); ok && c.sum == sum {
		return c.doc, nil
	}
	doc, err := workflow.ParseBytes(data, path)
	if err != nil {
		l.cache.Remove(key)
		return nil, err
	}
	l.cache.Add(key, cached{sum: sum, doc: doc})
	return doc, nil
}

// Forget drops any cached document for path.
func (l *Locator) Forget(path string) {
	if l.cache != nil {
		l.cache.Remove(l.store.Resolve(path))
	}
}

// Locate returns every tool in path matching c.
func (l *Locator) Locate(path string, c Criteria) (*Result, error) {
	doc, err := l.Document(path)
	if err != nil {
		return nil, err
	}
	matches := FindAll(doc, c)
	res := &Result{Tools: make([]Tool, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		res.Tools = append(res.Tools, Describe(m))
	}
	return res, nil
}
