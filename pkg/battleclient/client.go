package battleclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/history"
)

// Client talks to the battle service. It implements battle.CombatService
// and battle.RosterSource.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Names(ctx context.Context) ([]string, error) {
	var out battle.RosterResponse
	if err := c.do(ctx, http.MethodGet, "/api/pokemon-list", nil, &out); err != nil {
		return nil, err
	}
	return out.Pokemon, nil
}

func (c *Client) Lookup(ctx context.Context, name string) (battle.Combatant, error) {
	var out battle.Combatant
	err := c.do(ctx, http.MethodGet, "/api/battle/pokemon/"+url.PathEscape(strings.ToLower(name)), nil, &out)
	return out, err
}

func (c *Client) Simulate(ctx context.Context, action battle.Action, attacker, defender battle.Combatant) (battle.Resolution, error) {
	var out battle.Resolution
	req := battle.SimulateRequest{Action: action, Attacker: attacker, Defender: defender}
	err := c.do(ctx, http.MethodPost, "/api/battle/simulate", req, &out)
	return out, err
}

func (c *Client) ChooseAction(ctx context.Context, computer, player battle.Combatant) (battle.Choice, error) {
	var out battle.Choice
	req := battle.ComputerActionRequest{Computer: computer, Player: player}
	err := c.do(ctx, http.MethodPost, "/api/battle/computer-action", req, &out)
	return out, err
}

// Render returns a PNG of the session.
func (c *Client) Render(ctx context.Context, s battle.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodPost, "/api/battle/render", s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveResult records a finished battle.
func (c *Client) SaveResult(ctx context.Context, rec history.Record) (history.Record, error) {
	var out history.Record
	err := c.do(ctx, http.MethodPost, "/api/battle/results", rec, &out)
	return out, err
}

// do sends body as JSON and decodes the reply into out. A *bytes.Buffer out
// receives the raw body. Transport errors and non-2xx replies are reported
// as battle.ErrNetworkFailure.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", battle.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s %s: %d %s", battle.ErrNetworkFailure, method, path, resp.StatusCode, e.Error)
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return fmt.Errorf("%w: read %s: %w", battle.ErrNetworkFailure, path, err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", battle.ErrNetworkFailure, path, err)
	}
	return nil
}
