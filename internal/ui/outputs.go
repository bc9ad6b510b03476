package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// RenderOutputs writes outputs as aligned key/value lines in key order.
func RenderOutputs(w io.Writer, outputs map[string]string) error {
	if len(outputs) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No outputs."))
		return err
	}

	keys := slices.Sorted(maps.Keys(outputs))
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Outputs:"))
	b.WriteString("\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s: %s\n", keyStyle.Render(fmt.Sprintf("%-*s", width, k)), outputs[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderOutputsJSON writes outputs as an indented JSON object.
func RenderOutputsJSON(w io.Writer, outputs map[string]string) error {
	if outputs == nil {
		outputs = map[string]string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}
