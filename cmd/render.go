package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spigell/prep-brief/internal/logger"
	"github.com/spigell/prep-brief/internal/output"
	"github.com/spigell/prep-brief/internal/prep"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render BRIEF.json",
	Short: "Render a saved brief record as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}
		defer logger.Sync()

		out, _ := cmd.Flags().GetString("out")
		return renderBrief(args[0], out, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("out", "o", "", "write the Markdown to this path instead of stdout")
}

// renderBrief renders a stored record. Schema violations are reported as
// warnings and the record is coerced the same way a model response is.
func renderBrief(path, out string, stdout io.Writer, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read brief: %w", err)
	}

	if err := prep.ValidateDocument(data); err != nil {
		var schemaErr *prep.SchemaError
		if !errors.As(err, &schemaErr) {
			return err
		}
		for _, fe := range schemaErr.Errors {
			logger.Warn("brief does not match the schema",
				zap.String("file", path),
				zap.String("field", fe.Field),
				zap.String("problem", fe.Message),
			)
		}
	}

	result, err := prep.Coerce(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(result.Missing) > 0 {
		logger.Warn("brief is missing keys", zap.Strings("missing", result.Missing))
	}

	markdown := prep.Render(result.Record)

	if out == "" {
		_, err := io.WriteString(stdout, markdown)
		return err
	}

	target := output.TrimExt(out) + ".md"
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(target, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	logger.Info("brief rendered", zap.String("markdown", target))
	return nil
}
