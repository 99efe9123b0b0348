package cmd

import (
	"encoding/json"
	"fmt"
	"io"
)

func isJSON() bool {
	return jsonOutput
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
