package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/biovault/verify/cmd/biovault/internal/config"
	"github.com/biovault/verify/pkg/biometric"
	"github.com/biovault/verify/pkg/cli"
	"github.com/biovault/verify/pkg/media"
)

// ErrNotVerified is returned by the verify commands when the media do not
// match or could not be compared. The verdict has already been printed.
var ErrNotVerified = errors.New("not verified")

var (
	flagOutput  string
	flagTimeout time.Duration
	flagGap     time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify two faces or two voices once",
	Long: `Run one verification without starting the service.

Exit status is 0 when the media belong to the same person, 2 when they do
not or could not be compared, and 1 on usage or configuration errors.`,
}

var verifyFaceCmd = &cobra.Command{
	Use:   "face <ref1> <ref2>",
	Short: "Compare the faces in two images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, biometric.ModalityFace, args)
	},
}

var verifyVoiceCmd = &cobra.Command{
	Use:   "voice <ref1> <ref2>",
	Short: "Compare the speakers of two recordings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, biometric.ModalityVoice, args)
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect <ref>",
	Short: "Check whether an image contains a face",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	verifyCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format (text, yaml, json)")
	verifyCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "overall timeout")
	verifyVoiceCmd.Flags().DurationVar(&flagGap, "gap", 0, "silence between the recordings (overrides audio.silence_gap)")

	verifyCmd.AddCommand(verifyFaceCmd, verifyVoiceCmd, detectCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, m biometric.Modality, args []string) error {
	format, err := cli.ParseFormat(flagOutput)
	if err != nil {
		return err
	}
	a, err := media.ParseReference(args[0])
	if err != nil {
		return err
	}
	b, err := media.ParseReference(args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagGap > 0 {
		cfg.Audio.SilenceGap = flagGap
	}
	app, err := buildApp(cfg, cliLogger(cfg), true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	start := time.Now()
	v, err := app.pipeline.Verify(ctx, biometric.Request{Modality: m, A: a, B: b})
	if err != nil {
		return err
	}

	var out any = v
	if format == cli.FormatText {
		out = cli.Result{Modality: m, Refs: [2]string{a.String(), b.String()}, Verdict: v, Elapsed: time.Since(start)}
	}
	if err := cli.Output(out, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()}); err != nil {
		return err
	}
	if !v.Verified {
		return ErrNotVerified
	}
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(flagOutput)
	if err != nil {
		return err
	}
	ref, err := media.ParseReference(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cfg, cliLogger(cfg), true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	res, err := app.pipeline.CheckFace(ctx, ref)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		format = cli.FormatYAML
	}
	if err := cli.Output(res, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()}); err != nil {
		return err
	}
	if !res.FaceDetected {
		return ErrNotVerified
	}
	return nil
}

// cliLogger logs to stderr, quietly unless --verbose is set.
func cliLogger(cfg *config.Config) *slog.Logger {
	c := cfg.Log
	if !verbose {
		c.Level = "warn"
	}
	return newLogger(c, os.Stderr)
}
