package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Install yt-dlp and ffmpeg if needed and print their paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			tc := newToolchain(opts)
			out := cmd.OutOrStdout()

			extractor, err := tc.resolver.Extractor(ctx)
			if err != nil {
				return err
			}
			transcoder, ok, err := tc.resolver.Transcoder(ctx)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(out, map[string]any{
					"yt-dlp":           extractor,
					"ffmpeg":           transcoder,
					"ffmpeg_available": ok,
				})
			}
			fmt.Fprintf(out, "yt-dlp\t%s\n", extractor)
			if ok {
				fmt.Fprintf(out, "ffmpeg\t%s\n", transcoder)
			} else {
				fmt.Fprintln(out, "ffmpeg\tunavailable")
			}
			return nil
		},
	}
}
