package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"olc/common"
	"olc/state"
)

// Run implements the convert subcommand: read SOURCE in any importable
// format and write it to the DESTINATION directory in the requested format.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
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

	format, err := common.ParseFormat(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to native", zap.Error(err))
		format = common.FormatOLC
	}
	env.Overwrite = cmd.Bool("overwrite") || env.Cfg.Export.Overwrite

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	d, srcFormat, warnings, err := ImportFile(src, log)
	if err != nil {
		return fmt.Errorf("unable to read source (%s): %w", src, err)
	}
	logWarnings(log, "Import dropped content", warnings)
	log.Debug("Source parsed", zap.Stringer("format", srcFormat), zap.Int("blocks", len(d.Blocks)))

	opts := Options{
		TextEncoding: env.Cfg.Export.TextEncoding,
		FixZip:       env.Cfg.Export.FixZip,
		Overwrite:    env.Overwrite,
	}
	out := OutputPath(src, dst, format, env.Cfg.Export.FileNameTransliterate)

	op := NewOperation(d, out, format, opts, log)
	if err := op.Run(ctx); err != nil {
		return fmt.Errorf("unable to convert (%s): %w", src, err)
	}
	exported, _ := op.Result()
	logWarnings(log, "Export dropped content", exported)
	return nil
}

func logWarnings(log *zap.Logger, msg string, warnings []common.FidelityWarning) {
	for _, w := range warnings {
		log.Warn(msg, zap.String("code", w.Code), zap.String("path", w.Path), zap.String("detail", w.Detail))
	}
}
