package coordinator

import (
	"context"
	"io"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/store"
)

// ListFlows returns stored flows filtered and ordered by opts.
func (c *Coordinator) ListFlows(ctx context.Context, opts store.ListOptions) ([]*flow.Record, error) {
	return store.Query(ctx, c.flows, opts)
}

// GetFlow returns the flow with the given ID.
func (c *Coordinator) GetFlow(ctx context.Context, id string) (*flow.Record, error) {
	return c.flows.Get(ctx, id)
}

// FindFlow resolves an ID or a (fuzzy) name.
func (c *Coordinator) FindFlow(ctx context.Context, ref string) (*flow.Record, error) {
	return store.FindByName(ctx, c.flows, ref)
}

// RenameFlow changes a flow's name.
func (c *Coordinator) RenameFlow(ctx context.Context, id, name string) (*flow.Record, error) {
	rec, err := c.flows.Update(ctx, id, func(r *flow.Record) error {
		return r.Rename(name)
	})
	if err != nil {
		return nil, err
	}
	c.events.publish(Event{Type: EventFlowsChanged, FlowID: id})
	return rec, nil
}

// DuplicateFlow stores a copy of flow id and returns it.
func (c *Coordinator) DuplicateFlow(ctx context.Context, id string) (*flow.Record, error) {
	src, err := c.flows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := flow.Duplicate(src)
	if err := c.flows.Create(ctx, dup); err != nil {
		return nil, err
	}
	c.events.publish(Event{Type: EventFlowsChanged, FlowID: dup.ID})
	return dup, nil
}

// DeleteFlow removes flow id.
func (c *Coordinator) DeleteFlow(ctx context.Context, id string) error {
	if err := c.flows.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Infof("deleted flow %s", id)
	c.events.publish(Event{Type: EventFlowsChanged, FlowID: id})
	return nil
}

// Export writes all flows as an export document and returns how many it
// wrote.
func (c *Coordinator) Export(ctx context.Context, w io.Writer) (int, error) {
	return store.Export(ctx, c.flows, w)
}

// Import adds the flows of an export document whose IDs are new.
func (c *Coordinator) Import(ctx context.Context, r io.Reader) ([]*flow.Record, error) {
	added, err := store.Import(ctx, c.flows, r)
	if len(added) > 0 {
		c.logger.Infof("imported %d flows", len(added))
		c.events.publish(Event{Type: EventFlowsChanged, Count: len(added)})
	}
	return added, err
}

// FlowsForURL suggests flows recorded on the domain of pageURL.
func (c *Coordinator) FlowsForURL(ctx context.Context, pageURL string) ([]*flow.Record, error) {
	all, err := c.flows.List(ctx)
	if err != nil {
		return nil, err
	}
	return store.MatchURL(all, pageURL), nil
}

// Stats summarizes the flow library.
func (c *Coordinator) Stats(ctx context.Context) (store.Stats, error) {
	all, err := c.flows.List(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	return store.Summarize(all), nil
}
