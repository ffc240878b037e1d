package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// programEnv builds the environment the program sees: the .env files
// (unless disabled) overlaid with --env values. The host environment is
// not inherited.
func programEnv(cmd *cobra.Command, dir string) (map[string]string, error) {
	noDotenv, _ := cmd.Flags().GetBool("no-dotenv")
	envFiles, _ := cmd.Flags().GetStringArray("env-file")
	pairs, _ := cmd.Flags().GetStringArray("env")

	env := make(map[string]string)
	if !noDotenv {
		loaded, err := readDotenv(dir, envFiles)
		if err != nil {
			return nil, err
		}
		maps.Copy(env, loaded)
	}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q (expected KEY=VALUE)", kv)
		}
		env[k] = v
	}
	return env, nil
}

// readDotenv reads files in order, later files winning. With no files it
// reads dir/.env when present.
func readDotenv(dir string, files []string) (map[string]string, error) {
	if len(files) == 0 {
		def := filepath.Join(dir, ".env")
		if _, err := os.Stat(def); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		files = []string{def}
	}
	env := make(map[string]string)
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		maps.Copy(env, vals)
	}
	return env, nil
}
