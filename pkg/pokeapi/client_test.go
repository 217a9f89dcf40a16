package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pikachu = `{
	"id": 25, "name": "pikachu", "height": 4, "weight": 60, "base_experience": 112,
	"types": [{"slot": 1, "type": {"name": "electric"}}],
	"abilities": [{"ability": {"name": "static"}}, {"ability": {"name": "lightning-rod"}}],
	"stats": [{"base_stat": 35, "stat": {"name": "hp"}}, {"base_stat": 55, "stat": {"name": "attack"}}],
	"sprites": {"front_default": "http://img/25.png", "back_default": "http://img/back/25.png"}
}`

func TestPokemon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pokemon/pikachu", r.URL.Path)
		fmt.Fprint(w, pikachu)
	}))
	defer srv.Close()

	p, err := New(srv.URL, time.Second, 0).Pokemon(context.Background(), " Pikachu ")
	require.NoError(t, err)
	assert.Equal(t, 25, p.ID)
	assert.Equal(t, []string{"electric"}, p.TypeNames())
	assert.Equal(t, []string{"static", "lightning-rod"}, p.AbilityNames())
	assert.Equal(t, 35, p.BaseStat("hp"))
	assert.Equal(t, 0, p.BaseStat("speed"))
	assert.Equal(t, "http://img/back/25.png", p.Sprites.BackDefault)
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("limit"))
		assert.Equal(t, "24", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"count": 1302, "next": "n", "previous": null, "results": [{"name": "bulbasaur"}]}`)
	}))
	defer srv.Close()

	l, err := New(srv.URL, time.Second, 0).List(context.Background(), 12, 24)
	require.NoError(t, err)
	assert.Equal(t, 1302, l.Count)
	assert.NotNil(t, l.Next)
	assert.Nil(t, l.Previous)
	assert.Equal(t, "bulbasaur", l.Results[0].Name)
}

func TestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 0).Pokemon(context.Background(), "missingno")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 0).Species(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCacheExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, pikachu)
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(srv.URL, time.Second, time.Hour)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := c.Pokemon(context.Background(), "pikachu")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(2 * time.Hour)
	_, err := c.Pokemon(context.Background(), "pikachu")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestConcurrentRequestsCollapse(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, pikachu)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Pokemon(context.Background(), "pikachu")
			assert.NoError(t, err)
			assert.Equal(t, 25, p.ID)
		}()
	}
	// let the callers pile up behind the first request
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, hits.Load())
}

func TestEnglishFlavor(t *testing.T) {
	var s Species
	require.NoError(t, json.Unmarshal([]byte(`{"flavor_text_entries": [
		{"flavor_text": "Hola", "language": {"name": "es"}},
		{"flavor_text": "When several of\nthese POKéMON\fgather", "language": {"name": "en"}},
		{"flavor_text": "later", "language": {"name": "en"}}
	]}`), &s))
	assert.Equal(t, "When several of these POKéMON gather", s.EnglishFlavor())
	assert.Empty(t, Species{}.EnglishFlavor())
}
