package via

import (
	"fmt"

	"github.com/ryanhamamura/hellovia/h"
)

// ActionTrigger represents a trigger to an event handler fn registered with
// Context.Action.
type ActionTrigger struct {
	id string
}

// ID returns the action id used in the action URL.
func (a *ActionTrigger) ID() string {
	return a.id
}

// URL returns the path the browser calls to run the action.
func (a *ActionTrigger) URL() string {
	return "/_action/" + a.id
}

func (a *ActionTrigger) expr() string {
	return fmt.Sprintf("@get('%s')", a.URL())
}

// OnClick returns a via.h DOM attribute that triggers on click. It can be added
// to element nodes in a view.
func (a *ActionTrigger) OnClick() h.H {
	return h.Data("on:click", a.expr())
}
