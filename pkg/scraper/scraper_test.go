package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dexPage = `<html><body><main>
<h1>Pikachu</h1>
<p>Short.</p>
<h2>Pokédex entries</h2>
<table class="vitals-table"><tbody>
<tr><th>Red</th><td class="cell-med-text">When several of
  these Pokémon gather, their electricity could build and cause lightning storms.[1]</td></tr>
<tr><th>Blue</th><td class="cell-med-text">Later entry.</td></tr>
</tbody></table>
</main></body></html>`

const proseOnly = `<html><body><main>
<p>Tiny.</p>
<p>Pikachu is an Electric-type Pokémon introduced in Generation I, known as the Mouse Pokémon.</p>
</main></body></html>`

func TestParse(t *testing.T) {
	text, err := Parse(strings.NewReader(dexPage))
	require.NoError(t, err)
	assert.Equal(t, "When several of these Pokémon gather, their electricity could build and cause lightning storms.", text)

	text, err = Parse(strings.NewReader(proseOnly))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Pikachu is an Electric-type"))

	_, err = Parse(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	assert.ErrorIs(t, err, ErrNoLore)
}

func TestLore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.UserAgent())
		switch r.URL.Path {
		case "/pikachu":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, dexPage)
		case "/blank":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(srv.URL+"/", 2*time.Second)

	text, err := s.Lore(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Contains(t, text, "lightning storms")

	// collectors are per call, so revisiting works
	_, err = s.Lore(context.Background(), "pikachu")
	require.NoError(t, err)

	_, err = s.Lore(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrNoLore)

	_, err = s.Lore(context.Background(), "missingno")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoLore)
}

func TestLoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("http://127.0.0.1:1", time.Second).Lore(ctx, "pikachu")
	assert.ErrorIs(t, err, context.Canceled)
}
