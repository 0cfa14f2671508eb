package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
// Malformed, truncated, or tampered tokens all fail with this error;
// decoding never panics.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the position after the last row of a page: the sort field's
// value and the row id, combined into one opaque token. The sort value is
// carried in string form inside the token; ParseRequest converts it to the
// column's bind type for fields declared numeric in the endpoint Options.
type Cursor struct {
	SortValue string `json:"v"`
	RowID     int64  `json:"id"`
}

// Encode serializes the cursor into a URL-safe opaque token.
func Encode(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode is the inverse of Encode. Any input that is not a well-formed
// token produced by Encode yields ErrInvalidCursor.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.RowID <= 0 {
		return nil, fmt.Errorf("%w: missing row id", ErrInvalidCursor)
	}
	return &c, nil
}
