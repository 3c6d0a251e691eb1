package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage is the page size when per_page is not provided.
	DefaultPerPage = 15
	// MaxPerPage caps how many rows any list can request.
	MaxPerPage = 100

	keysetPrefix = "id"
	offsetPrefix = "off"
)

// Params holds page inputs parsed from the query string.
type Params struct {
	PerPage   int
	PageToken string
}

// Page is the list envelope returned by every paginated read.
type Page[T any] struct {
	Items         []T    `json:"items"`
	PerPage       int    `json:"per_page"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// NormalizePerPage applies the default for 0 and rejects values outside [1, MaxPerPage].
func NormalizePerPage(perPage int) (int, error) {
	if perPage == 0 {
		return DefaultPerPage, nil
	}
	if perPage < 1 || perPage > MaxPerPage {
		return 0, fmt.Errorf("per_page must be between 1 and %d", MaxPerPage)
	}
	return perPage, nil
}

// EncodeKeyset builds the token for lists ordered by id descending.
func EncodeKeyset(lastID uint64) string {
	return encode(keysetPrefix, strconv.FormatUint(lastID, 10))
}

// DecodeKeyset returns the id to continue below; 0 means first page.
func DecodeKeyset(token string) (uint64, error) {
	raw, err := decode(token, keysetPrefix)
	if err != nil || raw == "" {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid page token")
	}
	return id, nil
}

// EncodeOffset builds the token for lists with caller-chosen ordering.
func EncodeOffset(offset int) string {
	return encode(offsetPrefix, strconv.Itoa(offset))
}

// DecodeOffset returns the row offset to resume from; 0 means first page.
func DecodeOffset(token string) (int, error) {
	raw, err := decode(token, offsetPrefix)
	if err != nil || raw == "" {
		return 0, err
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid page token")
	}
	return offset, nil
}

// KeysetPage trims rows fetched with perPage+1 and derives the next token.
func KeysetPage[T any](rows []T, perPage int, idOf func(T) uint64) Page[T] {
	page := Page[T]{Items: rows, PerPage: perPage}
	if len(rows) > perPage {
		page.Items = rows[:perPage]
		page.NextPageToken = EncodeKeyset(idOf(page.Items[perPage-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

// OffsetPage trims rows fetched with perPage+1 starting at offset.
func OffsetPage[T any](rows []T, perPage, offset int) Page[T] {
	page := Page[T]{Items: rows, PerPage: perPage}
	if len(rows) > perPage {
		page.Items = rows[:perPage]
		page.NextPageToken = EncodeOffset(offset + perPage)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

func encode(prefix, value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(prefix + ":" + value))
}

func decode(token, prefix string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid page token")
	}
	kind, value, ok := strings.Cut(string(decoded), ":")
	if !ok || kind != prefix || value == "" {
		return "", fmt.Errorf("invalid page token")
	}
	return value, nil
}
