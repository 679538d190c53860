package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// event mirrors the calendar API's JSON shape.
type event struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("calendar api: %d %s", e.Status, e.Body)
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *client) listEvents(ctx context.Context, date string) ([]event, error) {
	path := "/api/events/getEvents"
	if date != "" {
		path = "/api/events/byDate?date=" + url.QueryEscape(date)
	}
	var out []event
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// nextSlot returns nil when the day has no room.
func (c *client) nextSlot(ctx context.Context, date string, minutes int) (*slot, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("minutes", strconv.Itoa(minutes))
	var out slot
	status, err := c.do(ctx, http.MethodGet, "/api/events/availableSlot?"+q.Encode(), nil, &out)
	if err != nil || status == http.StatusNoContent {
		return nil, err
	}
	return &out, nil
}

func (c *client) addEvent(ctx context.Context, ev event) (event, error) {
	var out event
	_, err := c.do(ctx, http.MethodPost, "/api/events/addEvent", ev, &out)
	return out, err
}

func (c *client) deleteEvent(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/events/deleteEvent/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
