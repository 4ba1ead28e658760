// Package optimizer rewrites plan trees into cheaper equivalents with
// local relational-algebra rules.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/cost"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

// Rules toggles the rule passes.
type Rules struct {
	SelectionPushdown  bool `mapstructure:"selection_pushdown"`
	CombineSelection   bool `mapstructure:"combine_selection"`
	JoinReorder        bool `mapstructure:"join_reorder"`
	AccessPath         bool `mapstructure:"access_path"`
	ProjectionPushdown bool `mapstructure:"projection_pushdown"`
}

func AllRules() Rules {
	return Rules{
		SelectionPushdown:  true,
		CombineSelection:   true,
		JoinReorder:        true,
		AccessPath:         true,
		ProjectionPushdown: true,
	}
}

type Option func(*Optimizer)

func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) { o.log = l }
}

func WithRules(r Rules) Option {
	return func(o *Optimizer) { o.rules = r }
}

type Optimizer struct {
	cat      catalog.Provider
	database string
	est      *cost.Estimator
	rules    Rules
	log      *slog.Logger
}

func New(cat catalog.Provider, database string, opts ...Option) *Optimizer {
	o := &Optimizer{
		cat:      cat,
		database: database,
		est:      cost.New(cat, database),
		rules:    AllRules(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type pass struct {
	name    string
	enabled bool
	run     func(ctx context.Context, t *planner.Tree) error
}

// Optimize runs the enabled passes in order: selection pushdown, combine
// selections into cross products, join reordering, access path choice and
// projection pushdown. The tree is validated after every pass and ctx is
// checked between rule applications.
func (o *Optimizer) Optimize(ctx context.Context, t *planner.Tree) error {
	if err := t.Validate(); err != nil {
		return err
	}

	passes := []pass{
		{"selection_pushdown", o.rules.SelectionPushdown, o.pushSelections},
		{"combine_selection", o.rules.CombineSelection, o.combineSelections},
		{"join_reorder", o.rules.JoinReorder, o.reorderJoins},
		{"access_path", o.rules.AccessPath, o.chooseAccessPaths},
		{"projection_pushdown", o.rules.ProjectionPushdown, o.pushProjection},
	}
	for _, p := range passes {
		if !p.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.run(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// eachNode applies rule to every node of the given kinds, deepest first.
// The node list is taken before the first rewrite.
func (o *Optimizer) eachNode(
	ctx context.Context,
	t *planner.Tree,
	name string,
	rule func(*planner.Tree, planner.NodeID) (bool, error),
	kinds ...planner.NodeKind,
) error {
	for _, id := range t.Collect(t.Root, kinds...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Parent(id) == planner.NoNode {
			continue
		}
		changed, err := rule(t, id)
		if err != nil {
			return err
		}
		if changed {
			o.log.Debug("rewrite applied", "rule", name, "node", id)
		}
	}
	return nil
}

func (o *Optimizer) pushSelections(ctx context.Context, t *planner.Tree) error {
	return o.eachNode(ctx, t, "selection_pushdown", o.PushSelection, planner.KindWhere)
}

func (o *Optimizer) combineSelections(ctx context.Context, t *planner.Tree) error {
	return o.eachNode(ctx, t, "combine_selection", o.CombineSelection, planner.KindJoin, planner.KindNaturalJoin)
}

func (o *Optimizer) reorderJoins(ctx context.Context, t *planner.Tree) error {
	return o.eachNode(ctx, t, "join_reorder", o.ReorderJoin, planner.KindJoin, planner.KindNaturalJoin)
}

func (o *Optimizer) chooseAccessPaths(ctx context.Context, t *planner.Tree) error {
	return o.eachNode(ctx, t, "access_path", o.ChooseAccessPath, planner.KindJoin, planner.KindNaturalJoin)
}

func (o *Optimizer) pushProjection(ctx context.Context, t *planner.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	changed, err := o.PushProjection(t)
	if changed {
		o.log.Debug("rewrite applied", "rule", "projection_pushdown", "node", t.Child(t.Root, 0))
	}
	return err
}

// columns lists the columns of a base table.
func (o *Optimizer) columns(table string) ([]string, error) {
	st, err := o.cat.Stats(o.database, table)
	if err != nil {
		return nil, err
	}
	return st.Columns, nil
}
