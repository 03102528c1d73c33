package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-invoice2pdf/internal/config"
	"github.com/alnah/go-invoice2pdf/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML: the config
// file, or the defaults, with INVOICE2PDF_* overrides applied.
func runConfigCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.StringP("config", "c", "", "config file name or path")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		printConfigUsage(env.Stderr)
		return ExitUsage
	}

	cfg, err := effectiveConfig(*name)
	if err == nil {
		err = writeConfig(env.Stdout, cfg)
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// effectiveConfig loads and validates the configuration a conversion
// without flags would use.
func effectiveConfig(name string) (*config.Config, error) {
	envCfg := loadEnvConfig()
	cfg, err := loadConfig(name, envCfg)
	if err != nil {
		return nil, err
	}
	applyEnvConfig(envCfg, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	data, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
