package h

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrsSortedByName(t *testing.T) {
	out, err := String(Button(Attrs(map[string]string{
		"title":      "t",
		"aria-label": "a",
		"class":      "c",
	})...))
	require.NoError(t, err)
	assert.Equal(t, `<button aria-label="a" class="c" title="t"></button>`, out)
}

func TestNilChildrenSkipped(t *testing.T) {
	out, err := String(Div(nil, If(false, Text("hidden")), If(true, Text("shown"))))
	require.NoError(t, err)
	assert.Equal(t, "<div>shown</div>", out)
}

func TestGroupAttributesApplyToParent(t *testing.T) {
	out, err := String(Button(Type("button"), Group(ID("b"), Data("on:click", "x")), Text("go")))
	require.NoError(t, err)
	assert.Equal(t, `<button type="button" id="b" data-on:click="x">go</button>`, out)
}

func TestStringNil(t *testing.T) {
	out, err := String(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestVoidElements(t *testing.T) {
	out, err := String(Meta(Data("init", "@get('/_sse')")))
	require.NoError(t, err)
	assert.Equal(t, `<meta data-init="@get(&#39;/_sse&#39;)">`, out)
}
