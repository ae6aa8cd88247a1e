package flags

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/ruteri/ergo-devnet-provisioning/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// LoadEnvFile loads the --env-file into the environment and re-applies EnvVars
// of already parsed flags that were not given on the command line.
func LoadEnvFile(cCtx *cli.Context) error {
	if err := common.LoadDotEnv(cCtx.String(EnvFileFlag.Name), cCtx.IsSet(EnvFileFlag.Name)); err != nil {
		return err
	}

	for _, f := range cCtx.App.Flags {
		name := f.Names()[0]
		if cCtx.IsSet(name) {
			continue
		}
		ef, ok := f.(interface{ GetEnvVars() []string })
		if !ok {
			continue
		}
		for _, env := range ef.GetEnvVars() {
			if value, found := os.LookupEnv(env); found {
				if err := cCtx.Set(name, value); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

var WorkdirFlag = &cli.StringFlag{
	Name:    "workdir",
	Aliases: []string{"C"},
	Value:   ".",
	EnvVars: []string{"ERGO_WORKDIR"},
	Usage:   "devnet root directory holding config/ and the per-node data directories",
}
var PrefixFlag = &cli.StringFlag{
	Name:    "prefix",
	Value:   "ergo",
	EnvVars: []string{"ERGO_CONFIG_PREFIX"},
	Usage:   "file name prefix of node configurations (<prefix>-N.conf) and keys (<prefix>-N.api.key)",
}
var NetworkFlag = &cli.StringFlag{
	Name:    "network",
	Value:   "mainnet",
	EnvVars: []string{"ERGO_NETWORK"},
	Usage:   "network type written into newly rendered node configurations",
}
var EnvFileFlag = &cli.StringFlag{
	Name:  "env-file",
	Value: ".env",
	Usage: "load environment variables from this file if it exists",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var NodeFlag = &cli.UintFlag{
	Name:    "node",
	Aliases: []string{"n"},
	Usage:   "node number (1-based)",
}
var EscrowFlag = &cli.StringSliceFlag{
	Name:    "escrow",
	EnvVars: []string{"ERGO_KEY_ESCROW"},
	Usage:   "escrow location URI (file://, s3://, vault://); may be repeated",
}

var EscrowPassphraseFlag = &cli.StringFlag{
	Name:    "escrow-passphrase",
	EnvVars: []string{"ERGO_ESCROW_PASSPHRASE"},
	Usage:   "seal escrowed secrets with this passphrase",
}

var EscrowThresholdFlag = &cli.IntFlag{
	Name:    "escrow-threshold",
	EnvVars: []string{"ERGO_ESCROW_THRESHOLD"},
	Usage:   "split secrets into Shamir shares, one per --escrow location, any N of which restore it (0 copies the whole secret to every location)",
}

var CommonFlags = []cli.Flag{
	WorkdirFlag,
	PrefixFlag,
	NetworkFlag,
	EnvFileFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
