package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file into the pipeline input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			transfer, err := ctx.uploads.Start(cmd.Context(), filepath.Base(path), f, info.Size())
			if err != nil {
				return err
			}

			// Ctrl-C aborts the transfer instead of killing the process
			// mid-request.
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupt)
			go func() {
				select {
				case <-interrupt:
					transfer.Cancel()
				case <-transfer.Done():
				}
			}()

			out := cmd.OutOrStdout()
			for state := range transfer.Watch() {
				fmt.Fprintf(out, "\r%3d%%", state.Percent)
			}
			fmt.Fprintln(out)

			final := transfer.State()
			if final.Phase != models.TransferSuccess {
				return transfer.Err()
			}
			fmt.Fprintf(out, "Uploaded %s\n", transfer.Filename)
			return nil
		},
	}
}
