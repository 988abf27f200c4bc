package page

import (
	"context"
	"fmt"

	"github.com/pagepilot/pagepilot/pkg/actions"
)

// Static is a Driver over fixed HTML, for tests and dry runs. Perform
// records the action and optionally swaps in the next page.
type Static struct {
	URL       string
	HTML      string
	Performed []actions.Instance

	// NextPages maps an action name to the HTML the page becomes after
	// that action runs.
	NextPages map[string]string
}

// Snapshot implements Driver.
func (s *Static) Snapshot(_ context.Context) (*Snapshot, error) {
	snap, err := Clean(s.HTML, 0)
	if err != nil {
		return nil, err
	}
	snap.URL = s.URL
	return snap, nil
}

// Perform implements Driver.
func (s *Static) Perform(_ context.Context, inst actions.Instance) (string, error) {
	s.Performed = append(s.Performed, inst)
	if next, ok := s.NextPages[inst.Name]; ok {
		s.HTML = next
	}
	return fmt.Sprintf("performed %s", inst.Name), nil
}

// Close implements Driver.
func (s *Static) Close() error { return nil }
