package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

const turnWait = 2 * time.Minute

type ErrorResponse struct {
	Error string `json:"error"`
}

type apiClient struct {
	cfg    *ConsoleConfig
	client *http.Client
}

func newAPIClient(cfg *ConsoleConfig, client *http.Client) *apiClient {
	return &apiClient{cfg: cfg, client: client}
}

func (a *apiClient) healthy() bool {
	resp, err := a.client.Get(a.cfg.APIBaseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	return resp.StatusCode == http.StatusOK
}

func (a *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.cfg.APIBaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", a.cfg.UserID)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errResp.Error)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (a *apiClient) listCharacters() ([]*vtm.Character, error) {
	var characters []*vtm.Character
	if err := a.do(http.MethodGet, "/v1/characters", nil, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

func (a *apiClient) createCharacter(name, clan, concept string, attrs vtm.Attributes) (*vtm.Character, error) {
	body := map[string]any{
		"name":       name,
		"clan":       clan,
		"concept":    concept,
		"attributes": attrs,
	}
	var c vtm.Character
	if err := a.do(http.MethodPost, "/v1/characters", body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *apiClient) getCharacter(id uuid.UUID) (*vtm.Character, error) {
	var c vtm.Character
	if err := a.do(http.MethodGet, "/v1/characters/"+id.String(), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *apiClient) createChronicle(characterID uuid.UUID) (*vtm.Chronicle, error) {
	var chr vtm.Chronicle
	err := a.do(http.MethodPost, "/v1/chronicles", map[string]any{"character_id": characterID}, &chr)
	if err != nil {
		return nil, err
	}
	return &chr, nil
}

func (a *apiClient) getChronicle(id uuid.UUID) (*vtm.Chronicle, error) {
	var chr vtm.Chronicle
	if err := a.do(http.MethodGet, "/v1/chronicles/"+id.String(), nil, &chr); err != nil {
		return nil, err
	}
	return &chr, nil
}

type queuedTurn struct {
	TurnID      string `json:"turn_id"`
	ChronicleID string `json:"chronicle_id"`
	Status      string `json:"status"`
}

type commandReply struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// submitTurn posts an action. Side channel commands return a reply
// immediately; narrator turns return the queued turn id and the caller
// follows up with awaitTurn.
func (a *apiClient) submitTurn(chronicleID uuid.UUID, action string) (*queuedTurn, *commandReply, error) {
	body := map[string]any{
		"chronicle_id":    chronicleID,
		"action":          action,
		"player_language": a.cfg.Language,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, a.cfg.APIBaseURL+"/v1/turns", bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", a.cfg.UserID)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var queued queuedTurn
		if err := json.Unmarshal(raw, &queued); err != nil {
			return nil, nil, err
		}
		return &queued, nil, nil
	case http.StatusOK:
		var reply commandReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			return nil, nil, err
		}
		return nil, &reply, nil
	default:
		var errResp ErrorResponse
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
			return nil, nil, fmt.Errorf("%s", errResp.Error)
		}
		return nil, nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(raw))
	}
}

type sseEvent struct {
	Type        string         `json:"type"`
	TurnID      string         `json:"turn_id,omitempty"`
	ChronicleID string         `json:"chronicle_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// awaitTurn reads the chronicle's SSE stream until the given turn
// completes or fails.
func (a *apiClient) awaitTurn(chronicleID uuid.UUID, turnID string) (*chat.TurnResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), turnWait)
	defer cancel()

	url := fmt.Sprintf("%s/v1/events/chronicles/%s", a.cfg.APIBaseURL, chronicleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// A dedicated client without timeout; the stream stays open.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event sseEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		if event.TurnID != turnID {
			continue
		}

		switch event.Type {
		case "turn.completed":
			raw, err := json.Marshal(event.Data["result"])
			if err != nil {
				return nil, err
			}
			var result chat.TurnResponse
			if err := json.Unmarshal(raw, &result); err != nil {
				return nil, err
			}
			return &result, nil
		case "turn.failed":
			msg, _ := event.Data["error"].(string)
			if msg == "" {
				msg = "turn failed"
			}
			return nil, fmt.Errorf("%s", msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("event stream closed: %w", err)
	}
	return nil, fmt.Errorf("event stream ended before the turn completed")
}
