package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>t</title><script>var p = "<p>no</p>";</script></head>
<body>
<p>First <b>bold</b> para.</p>
<div class="note">not a paragraph</div>
<main><p>Inside <script>skip()</script>main</p></main>
<p>   </p>
<p>Second</p>
</body></html>`

func TestWebLoader_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	loader, err := NewWebLoader(srv.Client(), "")
	require.NoError(t, err)

	doc, err := loader.Load(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "First bold para.\nInside main\nSecond", doc.PageContent)
	assert.Equal(t, map[string]any{"source": srv.URL + "/page"}, doc.Metadata)

	_, err = loader.Load(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestWebLoader_CustomSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	tests := []struct {
		selector string
		want     string
	}{
		{selector: "div.note", want: "not a paragraph"},
		{selector: "main > p", want: "Inside main"},
		{selector: "body > p", want: "First bold para.\nSecond"},
		{selector: "p b, div", want: "bold\nnot a paragraph"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			loader, err := NewWebLoader(nil, tt.selector)
			require.NoError(t, err)

			doc, err := loader.Load(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.PageContent)
		})
	}
}

func TestNewWebLoader_InvalidSelector(t *testing.T) {
	_, err := NewWebLoader(nil, "p[")
	assert.ErrorContains(t, err, "invalid selector")
}
