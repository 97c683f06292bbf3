package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kiranshivaraju/eveview/internal/backend"
	"github.com/kiranshivaraju/eveview/internal/results"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type UploadOptions struct {
	GlobalOptions

	Title       string
	Description string
	LoginURL    string
}

func DefaultUploadOptions() *UploadOptions {
	return &UploadOptions{
		GlobalOptions: DefaultGlobalOptions(),
		LoginURL:      "/login",
	}
}

func NewCmdUpload() *cobra.Command {
	o := DefaultUploadOptions()
	cmd := &cobra.Command{
		Use:   "upload IMAGE",
		Short: "Upload an image for analysis.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *UploadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Title, "title", "t", o.Title, "Title of the image.")
	fs.StringVarP(&o.Description, "description", "d", o.Description, "Description of the image.")
	fs.StringVar(&o.LoginURL, "login-url", o.LoginURL, "Where to obtain a new token when the session expires.")
}

func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.Title == "" {
		o.Title = filepath.Base(args[0])
	}
	return nil
}

func (o *UploadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", args[0])
	}
	return nil
}

func (o *UploadOptions) Run(ctx context.Context, out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	client, _ := o.Client()
	resp, err := client.Upload(ctx, backend.UploadRequest{
		Title:       o.Title,
		Description: o.Description,
		FileName:    filepath.Base(path),
		Image:       f,
	})
	if err != nil {
		ce := results.Classify(err)
		if ce.Kind == results.KindUnauthorized {
			return fmt.Errorf("%s: %s", ce.Message, unauthorizedHint(o.LoginURL))
		}
		if ce.Message == "" {
			return fmt.Errorf("upload cancelled")
		}
		return fmt.Errorf("%s", ce.Message)
	}

	fmt.Fprintln(out, resp.Message)
	return nil
}
