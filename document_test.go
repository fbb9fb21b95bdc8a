package trinity

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentAppendTo(t *testing.T) {
	t.Parallel()

	doc, err := parseDocument([]byte(`<!doctype html><html><head></head><body></body></html>`))
	require.NoError(t, err)
	outer, err := doc.parseFragment([]byte(`<div id="outer"></div>`))
	require.NoError(t, err)
	inner, err := doc.parseFragment([]byte(`<p>one</p><p>two</p>`))
	require.NoError(t, err)

	// every node of inner is attached to inner's root; moving them must
	// detach them first
	inner.AppendTo(outer.FirstElement())
	assert.Empty(t, inner.Nodes())

	var out bytes.Buffer
	require.NoError(t, outer.Render(&out))
	assert.Equal(t, `<div id="outer"><p>one</p><p>two</p></div>`, out.String())
}

func TestAppendNodeMovesAttachedNodes(t *testing.T) {
	t.Parallel()

	doc, err := parseDocument([]byte(`<!doctype html><html><head></head><body></body></html>`))
	require.NoError(t, err)
	first, err := doc.parseFragment([]byte(`<ul id="first"><li>moved</li></ul>`))
	require.NoError(t, err)
	second, err := doc.parseFragment([]byte(`<ul id="second"></ul>`))
	require.NoError(t, err)

	li := first.FirstElement().FirstChild
	require.NotNil(t, li)
	appendNode(second.FirstElement(), li)

	assert.Nil(t, first.FirstElement().FirstChild)
	assert.Same(t, li, second.FirstElement().FirstChild)
	assert.Same(t, second.FirstElement(), li.Parent)
}
