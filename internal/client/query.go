package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/schema"

	"github.com/melibackend/retail-dashboard/internal/models"
)

var queryEncoder = schema.NewEncoder()

// EncodeFilters turns a schema-tagged filter struct into query parameters.
// Empty, whitespace-only and "all" values are omitted; kept values are sent
// exactly as given. A nil filters value yields an empty set.
func EncodeFilters(filters any) (url.Values, error) {
	values := url.Values{}
	if filters == nil {
		return values, nil
	}
	if v, ok := filters.(url.Values); ok {
		for key, vals := range v {
			values[key] = append([]string(nil), vals...)
		}
	} else if err := queryEncoder.Encode(filters, values); err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}

	for key, vals := range values {
		kept := vals[:0]
		for _, v := range vals {
			if trimmed := strings.TrimSpace(v); trimmed == "" || trimmed == models.FilterAll {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			delete(values, key)
			continue
		}
		values[key] = kept
	}

	return values, nil
}
