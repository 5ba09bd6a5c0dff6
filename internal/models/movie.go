package models

import (
	"net/url"
	"strconv"
)

// Movie is a catalogue entry.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category,omitempty"`
	Cover       string  `json:"cover,omitempty"`
	Description string  `json:"description,omitempty"`
	Year        int     `json:"year,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	PlayURL     string  `json:"playUrl,omitempty"`
}

// MoviePage is one page of the catalogue listing.
type MoviePage struct {
	Total int     `json:"total"`
	List  []Movie `json:"list"`
}

// MovieListParams filters the catalogue listing. Zero values are omitted from the query.
type MovieListParams struct {
	Page     int
	PageSize int
	Title    string
	Category string
}

// Values encodes the params as query arguments.
func (p MovieListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Title != "" {
		v.Set("title", p.Title)
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	return v
}
