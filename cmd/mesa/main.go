// mesa loads files of the MESA sleep dataset and converts them to
// CSV, parquet or SQLite.
//
//	mesa stages annotations.xml          print a sleep stage timeline as CSV
//	mesa export psg --in <folder>        convert every subject of a folder
//	mesa edf 1                           describe the EDF recording of a subject
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mesa "github.com/mad-lab-fau/mesa-data-importer"
	"github.com/mad-lab-fau/mesa-data-importer/internal/config"
	"github.com/mad-lab-fau/mesa-data-importer/internal/export"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	root       string
	logLevel   string
}

// load reads the config file and applies flag overrides, and points
// the library logger at the configured logger.
func (o *options) load(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = o.root
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	l, err := cfg.Logger()
	if err != nil {
		return config.Config{}, nil, err
	}
	mesa.SetLogger(l)
	return cfg, l, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mesa",
		Short:         "Load and convert MESA sleep dataset files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.root, "root", ".", "MESA dataset root")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	root.AddCommand(newStagesCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newEDFCmd(opts))
	return root
}

func newStagesCmd(opts *options) *cobra.Command {
	var id int

	cmd := &cobra.Command{
		Use:   "stages [file.xml]",
		Short: "Print the sleep stage timeline of an annotation file as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var tbl *mesa.Table
			switch {
			case len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				tbl, err = mesa.ReadAnnotations(f)
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
			case cmd.Flags().Changed("id"):
				tbl, err = mesa.LoadSinglePSG(cfg.Root, id)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("give an annotation file or --id")
			}
			return tbl.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "subject id, read from the dataset root")
	return cmd
}

// batchLoaders maps export kinds to folder loaders.  The folder is
// relative to the dataset root unless --in is given.
var batchLoaders = map[string]struct {
	folder string
	load   func(string) (mesa.TableSet, error)
}{
	"psg":        {"polysomnography/annotations-events-nsrr", mesa.LoadAllPSG},
	"actigraphy": {"actigraphy", mesa.LoadAllActigraphy},
	"rpoint":     {"polysomnography/annotations-rpoints", mesa.LoadAllRPoint},
	"clean":      {mesa.CleanDataFolder, mesa.LoadAllCleanData},
}

func newExportCmd(opts *options) *cobra.Command {
	var in, out, format string

	cmd := &cobra.Command{
		Use:       "export <psg|actigraphy|rpoint|clean>",
		Short:     "Convert all subjects of one kind of file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"psg", "actigraphy", "rpoint", "clean"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output = out
			}
			if cmd.Flags().Changed("format") {
				cfg.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			kind := args[0]
			loader, ok := batchLoaders[kind]
			if !ok {
				return fmt.Errorf("unknown kind %q", kind)
			}
			folder := filepath.Join(cfg.Root, filepath.FromSlash(loader.folder))
			if in != "" {
				folder = in
			}

			data, err := loader.load(folder)
			if err != nil {
				return err
			}
			return export.New(cfg, log).Export(context.Background(), kind, data)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "folder to read instead of the default below the root")
	cmd.Flags().StringVar(&out, "out", "", "output directory or sqlite file")
	cmd.Flags().StringVar(&format, "format", "", "csv|parquet|sqlite")
	return cmd
}

func newEDFCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edf <id>",
		Short: "Describe the signals of a subject's EDF recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("subject id %q: %w", args[0], err)
			}
			rec, err := mesa.LoadEDF(cfg.Root, id)
			if err != nil {
				return err
			}
			return describeEDF(cmd.OutOrStdout(), rec)
		},
	}
}

func describeEDF(w io.Writer, rec *mesa.EDFRecording) error {
	if _, err := fmt.Fprintf(w, "start: %s\nrecord duration: %gs\n", rec.StartTime.Format("2006-01-02 15:04:05"), rec.RecordDuration); err != nil {
		return err
	}
	for j, sig := range rec.Signals {
		_, err := fmt.Fprintf(w, "%-16s %10d samples %8g Hz %s\n", sig.Label, rec.Data[j].Length(), rec.SampleRate(j), sig.PhysicalDimension)
		if err != nil {
			return err
		}
	}
	return nil
}
