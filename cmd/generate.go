package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spigell/prep-brief/internal/logger"
	"github.com/spigell/prep-brief/internal/output"
	"github.com/spigell/prep-brief/internal/prep"
	"github.com/spigell/prep-brief/internal/source"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultOutput = "prep_brief"

var errOverwriteDeclined = errors.New("output exists and overwrite was declined")

type generateOptions struct {
	JDURL       string
	JDText      string
	CV          string
	Out         string
	NoStdout    bool
	Interactive bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an interview preparation brief from a job description and a CV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("jd-url", "", "job description URL")
	generateCmd.Flags().String("jd-text", "", "job description text")
	generateCmd.Flags().String("cv", "", "path to the CV (.txt, .md, .pdf or .docx)")
	generateCmd.Flags().String("provider", "", "model provider: openai, gemini or anthropic")
	generateCmd.Flags().String("model", "", "model id (default depends on the provider)")
	generateCmd.Flags().String("mode", "", "prompt mode: split or combined")
	generateCmd.Flags().StringP("out", "o", defaultOutput, "output base path or s3://bucket/key, .json and .md are appended")
	generateCmd.Flags().Bool("no-stdout", false, "do not print the brief to stdout")
	generateCmd.Flags().BoolP("interactive", "i", false, "choose the model and confirm overwrites interactively")

	generateCmd.MarkFlagsMutuallyExclusive("jd-url", "jd-text")
	generateCmd.MarkFlagsOneRequired("jd-url", "jd-text")
	generateCmd.MarkFlagRequired("cv")

	viper.BindPFlag("ai.provider", generateCmd.Flags().Lookup("provider"))
	viper.BindPFlag("ai.model", generateCmd.Flags().Lookup("model"))
	viper.BindPFlag("ai.prompt-mode", generateCmd.Flags().Lookup("mode"))
}

func runGenerate(cmd *cobra.Command) error {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	opts := generateOptions{}
	opts.JDURL, _ = flags.GetString("jd-url")
	opts.JDText, _ = flags.GetString("jd-text")
	opts.CV, _ = flags.GetString("cv")
	opts.Out, _ = flags.GetString("out")
	opts.NoStdout, _ = flags.GetBool("no-stdout")
	opts.Interactive, _ = flags.GetBool("interactive")

	g := &generator{
		config:     config,
		logger:     logger,
		newInvoker: newInvoker,
		stdout:     cmd.OutOrStdout(),
		stderr:     cmd.ErrOrStderr(),
	}

	return g.run(cmd.Context(), opts)
}

type generator struct {
	config     *Config
	logger     *zap.Logger
	newInvoker invokerFactory
	stdout     io.Writer
	stderr     io.Writer
}

// run reads both inputs, calls the model once and writes the artifact pair.
// Nothing is written unless every earlier step succeeded.
func (g *generator) run(ctx context.Context, opts generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	aiCfg := g.config.AI
	p, err := lookupProvider(aiCfg.Provider)
	if err != nil {
		return err
	}
	aiCfg.Provider = p.name

	if strings.TrimSpace(aiCfg.Model) == "" {
		aiCfg.Model = p.defaultModel
		if opts.Interactive {
			if aiCfg.Model, err = selectModel(p); err != nil {
				return err
			}
		}
	}

	if opts.Out == "" {
		opts.Out = defaultOutput
	}
	store, base, err := output.Open(ctx, opts.Out, g.config.Output.S3)
	if err != nil {
		return err
	}

	if opts.Interactive {
		if err := confirmOverwrite(ctx, store, base); err != nil {
			return err
		}
	}

	log := logger.WithCommonFields(g.logger, aiCfg.Provider, aiCfg.Model)

	jd, err := source.JobDescription(ctx, source.JDInput{URL: opts.JDURL, Text: opts.JDText}, source.FetchOptions{
		Timeout:   g.config.Input.FetchTimeout,
		UserAgent: g.config.Input.UserAgent,
	})
	if err != nil {
		return err
	}

	cv, err := source.ReadCV(opts.CV)
	if err != nil {
		return err
	}

	invoker, err := g.newInvoker(ctx, aiCfg)
	if err != nil {
		return err
	}

	pipeline, err := prep.NewPipeline(invoker, g.logger, prep.Options{
		Provider:     aiCfg.Provider,
		Model:        aiCfg.Model,
		Mode:         prep.PromptMode(aiCfg.PromptMode),
		MinLength:    g.config.Input.MinLength,
		Timeout:      aiCfg.Timeout,
		MaxLogLength: aiCfg.MaxLogLength,
	})
	if err != nil {
		return err
	}

	brief, err := pipeline.Run(ctx, prep.Request{JobDescription: jd, CV: cv})
	if err != nil {
		var malformed *prep.MalformedResponseError
		if errors.As(err, &malformed) {
			log.Debug("unparseable model output", zap.String("raw", malformed.Raw))
		}
		return err
	}

	data, err := brief.JSON()
	if err != nil {
		return err
	}

	loc, err := store.Save(ctx, base, output.Artifacts{JSON: data, Markdown: []byte(brief.Markdown)})
	if err != nil {
		return fmt.Errorf("save brief: %w", err)
	}

	log.Info("brief written",
		zap.String("json", loc.JSON),
		zap.String("markdown", loc.Markdown),
		zap.String("prompt_version", brief.PromptVersion),
	)

	if missing := brief.Result.Missing; len(missing) > 0 {
		fmt.Fprintf(g.stderr, "Warning: the brief is missing keys: %s\n", strings.Join(missing, ", "))
	}

	if !opts.NoStdout {
		if _, err := io.WriteString(g.stdout, brief.Markdown); err != nil {
			return fmt.Errorf("print brief: %w", err)
		}
	}

	return nil
}

func selectModel(p provider) (string, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Choose a %s model", p.name),
		Items: p.models,
	}

	_, model, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("select model: %w", err)
	}

	return model, nil
}

func confirmOverwrite(ctx context.Context, store output.Store, base string) error {
	exists, err := store.Exists(ctx, base)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s.json or %s.md exists, overwrite", base, base),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return errOverwriteDeclined
		}
		return fmt.Errorf("confirm overwrite: %w", err)
	}

	return nil
}
