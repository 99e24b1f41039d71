package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/keygen"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

func newPlanCmd(opts *options) *cobra.Command {
	var size int64

	cmd := &cobra.Command{
		Use:   "plan [file]",
		Short: "Show the chunk plan for a file",
		Long: `Show how a file would be split into multipart parts under the configured
chunking policy, with the object key and content type the service would use.

Examples:
  # Plan a local file
  uploads plan ./dataset.tar

  # Plan by size alone
  uploads plan --size 42949672960`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.uploadSettings()
			if err != nil {
				return err
			}

			name := ""
			contentType := ""
			switch {
			case len(args) == 1:
				name, size, contentType, err = inspectFile(opts, args[0])
				if err != nil {
					return err
				}
			case size <= 0:
				return fmt.Errorf("a file or a positive --size is required")
			}

			result, err := policyFrom(cfg).Plan(size)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), opts, name, contentType, size, result)
		},
	}

	cmd.Flags().Int64Var(&size, "size", 0, "file size in bytes, when no file is given")
	return cmd
}

// inspectFile returns the name, size and sniffed content type of a local file.
func inspectFile(opts *options, path string) (string, int64, string, error) {
	fsys := opts.fsys
	if fsys == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", 0, "", fmt.Errorf("resolve %s: %w", path, err)
		}
		path = abs
		fsys = billy.NewOSFS("/")
	}

	info, err := fsys.Stat(path)
	if err != nil {
		return "", 0, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", 0, "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return "", 0, "", fmt.Errorf("%s is empty", path)
	}
	return path, info.Size(), keygen.DetectContentType(fsys, path), nil
}

func policyFrom(cfg config.Config) planner.Planner {
	p := planner.New()
	p.Preferred = cfg.Upload.ChunkSizeMB * uploadtypes.MiB
	p.Alignment = cfg.Upload.AlignmentMB * uploadtypes.MiB
	p.MaxParts = cfg.Upload.MaxParts
	return p
}

func printPlan(out io.Writer, opts *options, name, contentType string, size int64, r planner.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if name != "" {
		fmt.Fprintf(w, "File:\t%s\n", name)
		fmt.Fprintf(w, "Object key:\t%s\n", keygen.ObjectKey(name, opts.now()))
		fmt.Fprintf(w, "Content type:\t%s\n", contentType)
	}
	fmt.Fprintf(w, "Size:\t%d bytes (%s)\n", size, humanBytes(size))
	fmt.Fprintf(w, "Chunk size:\t%d bytes (%s)\n", r.ChunkSize, humanBytes(r.ChunkSize))
	fmt.Fprintf(w, "Parts:\t%d\n", r.TotalParts)
	if last := size - int64(r.TotalParts-1)*r.ChunkSize; r.TotalParts > 1 {
		fmt.Fprintf(w, "Last part:\t%d bytes (%s)\n", last, humanBytes(last))
	}
	return w.Flush()
}

func humanBytes(n int64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + units[i]
}
