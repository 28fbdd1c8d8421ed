package classifier

import (
	"fmt"

	"github.com/entrhq/formflow/pkg/dom"
)

// StandaloneGroupID identifies the synthetic group of fields that have no
// enclosing form element.
const StandaloneGroupID = "standalone-fields"

// FormGroup is a set of related fields and their submit buttons.
type FormGroup struct {
	ID            string            `json:"id"`
	Action        string            `json:"action,omitempty"`
	Method        string            `json:"method,omitempty"`
	Fields        []FieldDescriptor `json:"fields"`
	SubmitButtons []FieldDescriptor `json:"submitButtons"`
}

// DetectForms groups the relevant fields of doc by their enclosing form.
// Fields outside any form are returned in a trailing StandaloneGroupID
// group together with the action triggers that are also outside any form.
// Forms without relevant fields are omitted.
func DetectForms(doc *dom.Document) ([]FormGroup, error) {
	forms, err := doc.QueryAll("form")
	if err != nil {
		return nil, err
	}

	var groups []FormGroup
	for i, form := range forms {
		group := FormGroup{
			ID:     formID(form, i),
			Action: dom.AttrOr(form, "action"),
			Method: dom.AttrOr(form, "method"),
		}

		fields, err := queryWithin(doc, form, "input, select, textarea")
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if IsRelevantField(f) {
				group.Fields = append(group.Fields, Classify(f))
			}
		}

		buttons, err := queryWithin(doc, form, `button, input[type="submit"], input[type="button"]`)
		if err != nil {
			return nil, err
		}
		for _, b := range buttons {
			if IsActionTrigger(b) {
				group.SubmitButtons = append(group.SubmitButtons, Classify(b))
			}
		}

		if len(group.Fields) > 0 {
			groups = append(groups, group)
		}
	}

	standalone := FormGroup{ID: StandaloneGroupID}
	all, err := doc.QueryAll("input, select, textarea")
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if inForm(f) || !IsRelevantField(f) {
			continue
		}
		standalone.Fields = append(standalone.Fields, Classify(f))
	}
	if len(standalone.Fields) > 0 {
		triggers, err := doc.QueryAll("button, a")
		if err != nil {
			return nil, err
		}
		for _, b := range triggers {
			if !inForm(b) && IsActionTrigger(b) {
				standalone.SubmitButtons = append(standalone.SubmitButtons, Classify(b))
			}
		}
		groups = append(groups, standalone)
	}

	return groups, nil
}

func formID(form *dom.Node, index int) string {
	if id := dom.ID(form); id != "" {
		return id
	}
	if name := dom.AttrOr(form, "name"); name != "" {
		return name
	}
	return fmt.Sprintf("form-%d", index+1)
}

func inForm(el dom.Element) bool {
	return dom.Closest(el, dom.IsTag("form")) != nil
}

// queryWithin returns the elements matching selector that descend from root.
func queryWithin(doc *dom.Document, root *dom.Node, selector string) ([]*dom.Node, error) {
	all, err := doc.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	var out []*dom.Node
	for _, n := range all {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p == dom.Element(root) {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}
