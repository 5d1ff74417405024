package button

import (
	"testing"

	"github.com/ryanhamamura/hellovia/h"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, p Props) string {
	t.Helper()
	out, err := h.String(Render(p))
	require.NoError(t, err)
	return out
}

func TestRender(t *testing.T) {
	testcases := []struct {
		desc  string
		props Props
		want  string
	}{
		{
			"label only",
			Props{Label: "Toggle Me!"},
			`<button type="button">Toggle Me!</button>`,
		},
		{
			"attributes forwarded in name order",
			Props{Label: "Go", Attrs: map[string]string{"title": "go", "class": "primary"}},
			`<button type="button" class="primary" title="go">Go</button>`,
		},
		{
			"click handler forwarded",
			Props{Label: "Go", OnClick: h.Data("on:click", "$n++")},
			`<button type="button" data-on:click="$n++">Go</button>`,
		},
		{
			"type cannot be overridden",
			Props{Label: "Go", Attrs: map[string]string{"type": "submit"}},
			`<button type="button">Go</button>`,
		},
		{
			"label is escaped",
			Props{Label: "<b>"},
			`<button type="button">&lt;b&gt;</button>`,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, render(t, tc.props))
		})
	}
}

func TestRenderWithoutLabel(t *testing.T) {
	var out string
	assert.NotPanics(t, func() { out = render(t, Props{}) })
	assert.Equal(t, `<button type="button"></button>`, out)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(Props{}), ErrMissingLabel)
	assert.NoError(t, Validate(Props{Label: "ok"}))
}

func TestRenderDoesNotMutateProps(t *testing.T) {
	attrs := map[string]string{"type": "submit", "class": "x"}
	render(t, Props{Label: "Go", Attrs: attrs})
	assert.Equal(t, map[string]string{"type": "submit", "class": "x"}, attrs)
}
