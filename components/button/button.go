// Package button is the presentational button used by hellovia views.
//
// A button holds no state. Every value it renders comes from Props, which
// the owning view rebuilds on each render.
package button

import (
	"errors"

	"github.com/ryanhamamura/hellovia/h"
)

// ErrMissingLabel is reported for a button without visible content.
var ErrMissingLabel = errors.New("button: label is required")

// Props are the inputs of a button.
type Props struct {
	// Label is the visible content. Required.
	Label string
	// Attrs are forwarded verbatim to the <button> element.
	Attrs map[string]string
	// OnClick is the click handler, usually an action trigger's OnClick().
	OnClick h.H
}

// Validate reports ErrMissingLabel when p has no label.
func Validate(p Props) error {
	if p.Label == "" {
		return ErrMissingLabel
	}
	return nil
}

// Render returns a non-submitting <button> with the forwarded attributes, the
// click handler and the label. It never fails: a missing label renders an
// empty button.
func Render(p Props) h.H {
	attrs := make(map[string]string, len(p.Attrs))
	for k, v := range p.Attrs {
		if k == "type" {
			continue
		}
		attrs[k] = v
	}
	return h.Button(
		h.Type("button"),
		h.Group(h.Attrs(attrs)...),
		p.OnClick,
		h.Text(p.Label),
	)
}
