package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/config"
	"github.com/spf13/cobra"
)

const defaultInitFile = ".toolchat.yaml"

func newInitCmd(f *flags, out io.Writer) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration",
		Long:  "Writes a sample configuration to --config, or to .toolchat.yaml in the current directory.",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := f.config
			if path == "" {
				path = defaultInitFile
			}
			if err := writeSample(path, force); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func writeSample(path string, force bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flag, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errors.Errorf("%s already exists, use --force to overwrite", path)
		}
		return errors.WithStack(err)
	}
	defer file.Close()

	return config.Sample().WriteYAML(file)
}
