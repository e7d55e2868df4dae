// This program converts a reward allocation CSV into the claims JSON used to
// build a merkle distribution.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/rewards/business/core/claims"
	"github.com/ardanlabs/rewards/foundation/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("CONVERT")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the conversion.
	if err := run(log); err != nil {
		log.Errorw("convert", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args     conf.Args
		Reason   string `conf:"default:Ambassador Delegation"`
		Decimals int32  `conf:"default:18"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "usage: convert [options] <input-csv-path> <output-basename>",
		},
	}

	const prefix = "CONVERT"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Args) < 2 {
		return errors.New("usage: convert <input-csv-path> <output-basename>")
	}

	log = log.With("run", uuid.NewString())

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "version", build, "config", out)

	// =========================================================================
	// Conversion

	ccfg := claims.Config{
		Reason:   cfg.Reason,
		Decimals: cfg.Decimals,
	}

	sum, err := claims.ConvertFile(cfg.Args.Num(0), cfg.Args.Num(1), ccfg)
	if err != nil {
		return err
	}

	log.Infow("converted", "rows", sum.Rows, "emitted", sum.Emitted, "skipped", sum.Skipped, "output", sum.Output)

	return nil
}
