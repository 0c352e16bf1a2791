package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/school-timetable/internal/application"
	httptransport "github.com/example/school-timetable/internal/http"
)

func newExpandCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Preview the occurrences of a recurring slot against the configured store",
		Long: "Reads a slot document in the POST /slots format and prints every occurrence\n" +
			"the recurrence would produce together with its conflicts. Nothing is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read slot file: %w", err)
			}
			input, err := httptransport.ParseSlotInput(data)
			if err != nil {
				return describeInputError(err)
			}

			a, err := loadApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			preview, err := a.timetable.ExpandPreview(cmd.Context(), input)
			if err != nil {
				return describeInputError(err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(httptransport.ToExpansionDTO(preview))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the slot JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// describeInputError flattens field errors into one readable line.
func describeInputError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || !vErr.HasErrors() {
		return err
	}
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return fmt.Errorf("invalid slot: %s", strings.Join(fields, "; "))
}
