package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStringOrArray parses a parameter that can be either a single string or
// an array of strings. A string that looks like a JSON array (e.g. a client
// serializing `["a", "b"]` as one string argument) is decoded as one.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				if len(arr) == 0 {
					return nil, fmt.Errorf("%s cannot be empty", paramName)
				}
				for i, item := range arr {
					if item == "" {
						return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
					}
				}
				return arr, nil
			}
			// Not valid JSON, treat it as a literal string.
		}
		result = []string{v}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// OptionalStringOrArray behaves like ParseStringOrArray but treats a missing
// argument as an absent value rather than an error.
func OptionalStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, nil
	}
	return ParseStringOrArray(param, paramName)
}
