// Package query models the filter and pagination state that fully determines
// a results list request, and its encoding onto the wire.
package query

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Status filters records by analysis state. The zero value matches any state.
type Status string

const (
	StatusAny        Status = ""
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// FileType filters records by uploaded image format. The zero value matches any format.
type FileType string

const (
	FileTypeAny  FileType = ""
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ErrInvalidState is returned when a State fails validation.
var ErrInvalidState = errors.New("invalid query state")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Filters holds the user-editable filter fields of a query.
type Filters struct {
	Status    Status    `json:"status"     validate:"omitempty,oneof=processing completed"`
	DateRange DateRange `json:"date_range"`
	FileType  FileType  `json:"file_type"  validate:"omitempty,oneof=png jpg jpeg"`
	Search    string    `json:"search"`
}

// Equal reports whether two filter sets are structurally identical.
func (f Filters) Equal(o Filters) bool {
	return f.Status == o.Status &&
		f.DateRange.Equal(o.DateRange) &&
		f.FileType == o.FileType &&
		f.Search == o.Search
}

// State is an immutable snapshot of filters and pagination.
// Modifiers return a new value; a State is never changed in place.
type State struct {
	Filters
	Page  int `json:"page"  validate:"gte=1"`
	Limit int `json:"limit" validate:"gt=0"`
}

// Default returns the state every view starts from and returns to on clear.
func Default() State {
	return State{Page: DefaultPage, Limit: DefaultLimit}
}

// WithFilters returns a copy of s with its filters replaced.
func (s State) WithFilters(f Filters) State {
	s.Filters = f
	return s
}

// WithPage returns a copy of s with its pagination replaced and filters kept.
func (s State) WithPage(page, limit int) State {
	s.Page = page
	s.Limit = limit
	return s
}

// Equal reports structural equality. It is used to detect redundant and stale requests.
func (s State) Equal(o State) bool {
	return s.Filters.Equal(o.Filters) && s.Page == o.Page && s.Limit == o.Limit
}

// Validate rejects states the results service cannot serve: unknown enum
// values, non-positive page or limit, and inverted date ranges.
func (s State) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidState, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !s.DateRange.IsZero() && s.DateRange.End.Before(s.DateRange.Start) {
		return fmt.Errorf("%w: date range end precedes start", ErrInvalidState)
	}
	return nil
}

// Params encodes the state as the results endpoint's query parameters.
// Empty filters are still sent, matching what the service expects.
func (s State) Params() url.Values {
	return url.Values{
		"status":     {string(s.Status)},
		"date_range": {s.DateRange.String()},
		"fileType":   {string(s.FileType)},
		"search":     {s.Search},
		"page":       {strconv.Itoa(s.Page)},
		"limit":      {strconv.Itoa(s.Limit)},
	}
}

// Hash returns a stable fingerprint of the wire form, used for cache keys.
func (s State) Hash() string {
	sum := sha256.Sum256([]byte(s.Params().Encode()))
	return fmt.Sprintf("%x", sum)
}
