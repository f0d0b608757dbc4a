package backlogdb

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// constraint is one store-level uniqueness rule.
type constraint struct {
	name     string
	label    string
	property string
}

func (c constraint) cypher() string {
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", c.name, c.label, c.property)
}

// constraints returns the uniqueness rules Setup installs: names of users and
// shows, and `_id` on every vertex label.
func constraints() []constraint {
	out := []constraint{
		{name: "user_name_unique", label: Users.Label, property: "name"},
		{name: "show_name_unique", label: Shows.Label, property: "name"},
	}
	for _, c := range VertexCollections {
		out = append(out, constraint{
			name:     strings.ToLower(c.Label) + "_id_unique",
			label:    c.Label,
			property: IDField,
		})
	}
	return out
}

// Setup installs the store-level uniqueness constraints. It is idempotent.
// The constraint statements are independent of each other and run
// concurrently; the first failure cancels the rest.
func (s *Store) Setup(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range constraints() {
		g.Go(func() error {
			if _, err := s.runner.Run(withQueryName(ctx, "setup_constraint"), c.cypher(), nil); err != nil {
				return fmt.Errorf("create constraint %s: %w", c.name, err)
			}
			s.log.Debug().Str("constraint", c.name).Msg("constraint ensured")
			return nil
		})
	}
	return g.Wait()
}
