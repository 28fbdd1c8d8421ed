package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/entrhq/formflow/pkg/flow"
)

// flowItem shows a saved flow in the browser list.
type flowItem struct {
	rec *flow.Record
}

func (i flowItem) FilterValue() string { return i.rec.Name + " " + i.rec.Domain }

func (i flowItem) Title() string { return i.rec.Name }

func (i flowItem) Description() string {
	plays := "never played"
	switch i.rec.PlayCount {
	case 0:
	case 1:
		plays = "played once"
	default:
		plays = fmt.Sprintf("played %d times", i.rec.PlayCount)
	}
	return fmt.Sprintf("%s • %d actions • %s", i.rec.Domain, len(i.rec.Actions), plays)
}

func newFlowDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.
		Foreground(salmonPink).
		BorderForeground(salmonPink)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.
		Foreground(mutedGray).
		BorderForeground(salmonPink)
	return d
}

func toItems(flows []*flow.Record) []list.Item {
	items := make([]list.Item, len(flows))
	for i, r := range flows {
		items[i] = flowItem{rec: r}
	}
	return items
}
