// ABOUTME: Output rendering for listingctl in JSON or YAML
// ABOUTME: Converts query keys to flag names

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// render writes v in the selected output format. YAML goes through JSON first
// so both formats share the json field names.
func render(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	switch outputFmt {
	case "", "json":
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", outputFmt)
	}
}

// flagName turns a query key such as min_price into min-price
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
