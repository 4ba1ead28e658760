// Package engine wires the planning pipeline together: parse, build the
// query tree, rewrite it and estimate its cost.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/cost"
	"github.com/tuannm99/novaplan/internal/sql/optimizer"
	"github.com/tuannm99/novaplan/internal/sql/parser"
	"github.com/tuannm99/novaplan/internal/sql/planner"
	"github.com/tuannm99/novaplan/pkg/cache"
)

var ErrNoCatalog = errors.New("novaplan: engine needs a statistics catalog")

type Options struct {
	// Database is the catalog database every statement is planned against.
	Database string
	// GrammarPath overrides the embedded grammar when set.
	GrammarPath string
	Rules       optimizer.Rules
	// ParseCacheSize bounds the cache of parsed statements keyed by their
	// text. Zero disables it.
	ParseCacheSize int
	Logger         *slog.Logger
}

// ParsedQuery is the result of planning one statement.
type ParsedQuery struct {
	Tree       *planner.Tree
	Normalized string
	Kind       parser.StatementKind
	Query      *parser.Query
}

type Engine struct {
	database string
	cat      catalog.Provider
	parser   *parser.Parser
	opt      *optimizer.Optimizer
	est      *cost.Estimator
	queries  *cache.LRU[string, *parser.Query]
	log      *slog.Logger
}

func New(opts Options, cat catalog.Provider) (*Engine, error) {
	if cat == nil {
		return nil, ErrNoCatalog
	}

	g := parser.DefaultGrammar()
	if opts.GrammarPath != "" {
		var err error
		if g, err = parser.LoadGrammarFile(opts.GrammarPath); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		database: opts.Database,
		cat:      cat,
		parser:   parser.New(g),
		opt:      optimizer.New(cat, opts.Database, optimizer.WithLogger(log), optimizer.WithRules(opts.Rules)),
		est:      cost.New(cat, opts.Database),
		queries:  cache.NewLRU[string, *parser.Query](opts.ParseCacheSize),
		log:      log,
	}, nil
}

func (e *Engine) Database() string { return e.database }

func (e *Engine) Catalog() catalog.Provider { return e.cat }

// CacheStats reports parse cache hits and misses.
func (e *Engine) CacheStats() (hits, misses uint64) { return e.queries.Stats() }

// ParseQuery validates sql and builds its unoptimized tree. Every call
// gets a tree of its own even when the parse comes from the cache.
func (e *Engine) ParseQuery(sql string) (*ParsedQuery, error) {
	key := strings.TrimSpace(sql)
	q, ok := e.queries.Get(key)
	if !ok {
		var err error
		if q, err = e.parser.Parse(sql); err != nil {
			return nil, err
		}
		e.queries.Put(key, q)
	}

	tree, err := planner.BuildTree(q, catalog.SchemaView{Provider: e.cat, Database: e.database})
	if err != nil {
		return nil, err
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	e.log.Debug("query parsed", "kind", q.Kind, "normalized", q.Normalized, "nodes", tree.Len())
	return &ParsedQuery{
		Tree:       tree,
		Normalized: q.Normalized,
		Kind:       q.Kind,
		Query:      q,
	}, nil
}

// OptimizeQuery rewrites the tree of pq in place. On error the tree is
// left as it was before the call.
func (e *Engine) OptimizeQuery(ctx context.Context, pq *ParsedQuery) error {
	work := pq.Tree.Clone()
	if err := e.opt.Optimize(ctx, work); err != nil {
		return err
	}
	pq.Tree = work
	return nil
}

func (e *Engine) Cost(pq *ParsedQuery) (int64, error) {
	return e.est.Cost(pq.Tree)
}

// Plan parses sql, optionally optimizes it and returns the plan with its
// estimated cost.
func (e *Engine) Plan(ctx context.Context, sql string, optimize bool) (*ParsedQuery, int64, error) {
	pq, err := e.ParseQuery(sql)
	if err != nil {
		return nil, 0, err
	}
	if optimize {
		if err := e.OptimizeQuery(ctx, pq); err != nil {
			return nil, 0, err
		}
	}

	c, err := e.Cost(pq)
	if err != nil {
		return nil, 0, err
	}
	e.log.Info("query planned", "kind", pq.Kind, "optimized", optimize, "cost", c)
	return pq, c, nil
}

// Report is the serializable summary of a plan shared by the network
// front ends.
type Report struct {
	Kind       string           `json:"kind"`
	Normalized string           `json:"normalized"`
	Cost       int64            `json:"cost"`
	Optimized  bool             `json:"optimized"`
	Explain    string           `json:"explain"`
	Plan       planner.NodeView `json:"plan"`
}

func NewReport(pq *ParsedQuery, cost int64, optimized bool) Report {
	return Report{
		Kind:       pq.Kind.String(),
		Normalized: pq.Normalized,
		Cost:       cost,
		Optimized:  optimized,
		Explain:    pq.Tree.String(),
		Plan:       pq.Tree.View(),
	}
}
