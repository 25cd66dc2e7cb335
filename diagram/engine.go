package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-graphviz"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of rendered diagrams an Engine keeps.
const DefaultCacheSize = 64

var (
	// ErrEngineClosed is returned by renders after Close.
	ErrEngineClosed = errors.New("layout engine is closed")

	// ErrInvalidGraph is returned when the layout engine rejects the DOT input.
	ErrInvalidGraph = errors.New("invalid graph description")
)

// renderMu serializes all graphviz calls. DOT parsing in go-graphviz runs on
// a process-wide WASM instance.
var renderMu sync.Mutex

// Engine owns a graphviz instance, created on first use.
//
// Concurrent first renders share one initialization. Renders are serialized;
// results are cached by DOT text. Close releases the instance.
type Engine struct {
	instance func() (*graphviz.Graphviz, error)
	started  atomic.Bool
	closed   bool // guarded by renderMu
	cache    *lru.Cache[string, string]
}

// NewEngine creates an engine caching up to cacheSize diagrams. A size below
// one selects DefaultCacheSize.
func NewEngine(cacheSize int) *Engine {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("diagram: lru cache: %v", err))
	}

	e := &Engine{cache: cache}
	e.instance = sync.OnceValues(func() (*graphviz.Graphviz, error) {
		e.started.Store(true)
		// Not tied to a caller: the instance outlives the request that creates it.
		return graphviz.New(context.Background())
	})
	return e
}

// RenderSVG lays out dotText and returns the SVG markup unchanged.
func (e *Engine) RenderSVG(ctx context.Context, dotText string) (string, error) {
	if svg, ok := e.cache.Get(dotText); ok {
		return svg, nil
	}

	renderMu.Lock()
	defer renderMu.Unlock()

	if e.closed {
		return "", ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	gv, err := e.instance()
	if err != nil {
		return "", fmt.Errorf("failed to start layout engine: %w", err)
	}

	graph, err := graphviz.ParseBytes([]byte(dotText))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return "", fmt.Errorf("failed to render diagram: %w", err)
	}

	svg := buf.String()
	e.cache.Add(dotText, svg)
	return svg, nil
}

// Close releases the graphviz instance if one was created.
func (e *Engine) Close() error {
	renderMu.Lock()
	defer renderMu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.cache.Purge()

	if !e.started.Load() {
		return nil
	}
	gv, err := e.instance()
	if err != nil {
		return nil
	}
	return gv.Close()
}
