package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"resumedoc/config"
	"resumedoc/content"
	"resumedoc/docx"
	"resumedoc/state"
	"resumedoc/tokens"
)

// Run is the build subcommand entry point: load inputs, run the builder,
// write both outputs.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no content description has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	tokensPath := cmd.String("tokens")
	if len(tokensPath) == 0 {
		tokensPath = env.Cfg.Document.TokensPath
	}
	if len(tokensPath) == 0 {
		return errors.New("no token set has been specified")
	}

	basePath := cmd.String("base")
	if len(basePath) == 0 {
		basePath = env.Cfg.Document.BasePackagePath
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.NativeLists = env.Cfg.Document.NativeLists
	if cmd.Bool("plain-bullets") {
		env.NativeLists = false
	}

	log.Info("Build starting", zap.String("content", src), zap.String("tokens", tokensPath), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Build finished", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, tokensPath, basePath, dst, log)
}

// process runs one build independently of the CLI framework.
func process(ctx context.Context, src, tokensPath, basePath, dst string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	toks, err := tokens.LoadFile(tokensPath)
	if err != nil {
		return err
	}
	resume, err := content.LoadFile(src)
	if err != nil {
		return err
	}

	b, err := NewBuilder(toks, resume, Options{
		BasePackagePath: basePath,
		NativeLists:     env.NativeLists,
		Thresholds: docx.Thresholds{
			WarnAfter:    env.Cfg.Document.Reconcile.WarnAfter.Value(),
			WarnElements: env.Cfg.Document.Reconcile.WarnElements,
		},
	}, log)
	if err != nil {
		return err
	}

	res, err := b.Run()
	if err != nil {
		return fmt.Errorf("unable to build document from (%s): %w", src, err)
	}
	if res.Report != nil && res.Report.Errs != nil {
		log.Warn("Reconciliation finished with element errors", zap.Error(res.Report.Errs))
	}

	outputBase, err := buildOutputName(resume, env.Cfg.Document.OutputNameTemplate)
	if err != nil {
		return err
	}
	outputBase = filepath.Join(dst, outputBase)

	for _, out := range []struct {
		name  string
		write func(string) error
	}{
		{outputBase + ".docx", res.Package.WriteFile},
		{outputBase + ".html", func(fname string) error {
			return os.WriteFile(fname, []byte(res.Markup), 0644)
		}},
	} {
		if err := prepareOutputFile(out.name, env.Overwrite, log); err != nil {
			return err
		}
		if err := out.write(out.name); err != nil {
			return fmt.Errorf("unable to write output (%s): %w", out.name, err)
		}
		log.Info("Output written", zap.String("file", out.name))
		if env.Rpt != nil {
			env.Rpt.Store("result"+filepath.Ext(out.name), out.name)
		}
	}
	return nil
}

// prepareOutputFile enforces the overwrite policy and makes sure the
// destination directory exists.
func prepareOutputFile(fname string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(fname); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", fname)
		}
		log.Warn("Overwriting existing file", zap.String("file", fname))
		return os.Remove(fname)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(filepath.Dir(fname), 0755)
}

// nameValues is what the output name template can reference.
type nameValues struct {
	Name  string
	Title string
}

// buildOutputName expands the configured name template with content values
// and sanitizes the result for the file system.
func buildOutputName(resume *content.Resume, tpl string) (string, error) {
	tmpl, err := template.New("output_name").Funcs(sprig.FuncMap()).Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("unable to parse output name template: %w", err)
	}
	buf := new(bytes.Buffer)
	err = tmpl.Execute(buf, nameValues{
		Name:  resume.Identity.Name,
		Title: resume.Identity.Title,
	})
	if err != nil {
		return "", fmt.Errorf("unable to expand output name template: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	if len(name) == 0 {
		return "", errors.New("output name template expanded to nothing")
	}
	return config.CleanFileName(name), nil
}
