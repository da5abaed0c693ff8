package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type PageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// List is the envelope for paginated collections.
type List[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

func NewList[T any](items []T, page, perPage, total int) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{
		Data: items,
		Meta: PageMeta{Page: page, PerPage: perPage, Total: total},
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ConflictResponse is the 409 body.
type ConflictResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" or RFC 3339 and always encodes as a calendar date.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}
