package main

import (
	"log"
	"os"
	"slices"

	"github.com/ruteri/ergo-devnet-provisioning/cmd/flags"
	"github.com/ruteri/ergo-devnet-provisioning/nodeapi"
	"github.com/ruteri/ergo-devnet-provisioning/orchestrator"
	"github.com/urfave/cli/v2"
)

var flagKey = &cli.StringFlag{
	Name:  "key",
	Usage: "use this secret instead of generating a random one",
}
var flagComposeFile = &cli.StringFlag{
	Name:    "compose-file",
	Value:   orchestrator.DefaultComposeFileName,
	EnvVars: []string{"ERGO_COMPOSE_FILE"},
	Usage:   "compose file defining the node services, relative to the workdir",
}
var flagComposeBin = &cli.StringFlag{
	Name:    "compose-bin",
	Value:   "docker compose",
	EnvVars: []string{"ERGO_COMPOSE_BIN"},
	Usage:   "compose command used to restart a node",
}
var flagNoReload = &cli.BoolFlag{
	Name:  "no-reload",
	Usage: "only rewrite the files, do not restart the node",
}
var flagAll = &cli.BoolFlag{
	Name:  "all",
	Usage: "verify every node found in the config directory",
}
var flagCheckAPI = &cli.BoolFlag{
	Name:  "check-api",
	Usage: "also present the key to the running node's REST API",
}
var flagCheckPath = &cli.StringFlag{
	Name:  "check-path",
	Value: nodeapi.DefaultCheckPath,
	Usage: "authenticated REST endpoint used by --check-api",
}
var flagShowKey = &cli.BoolFlag{
	Name:  "show-key",
	Usage: "print the plaintext API key and a curl command embedding it",
}
var flagHost = &cli.StringFlag{
	Name:    "host",
	Value:   "localhost",
	EnvVars: []string{"ERGO_API_HOST"},
	Usage:   "host the node REST APIs are published on",
}
var flagNodes = &cli.IntFlag{
	Name:     "nodes",
	Required: true,
	Usage:    "number of nodes in the devnet",
}
var flagOutput = &cli.StringFlag{
	Name:  "output",
	Value: orchestrator.DefaultComposeFileName,
	Usage: "compose file to write, relative to the workdir",
}
var flagImage = &cli.StringFlag{
	Name:  "image",
	Usage: "container image running the node jar",
}
var flagJar = &cli.StringFlag{
	Name:  "jar",
	Usage: "node jar file name inside each node directory",
}
var flagHeap = &cli.StringFlag{
	Name:  "heap",
	Usage: "JVM max heap size per node",
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "ergokeys",
		Usage:  "Manage REST API keys of a local Ergo devnet",
		Flags:  slices.Concat(flags.CommonFlags, []cli.Flag{flags.LogServiceFlagFn("ergokeys")}),
		Before: flags.LoadEnvFile,
		Commands: []*cli.Command{
			{
				Name:   "generate-key",
				Usage:  "Generate an API key; with --node also write it into the node files",
				Flags:  []cli.Flag{flagKey, flags.NodeFlag, flags.EscrowFlag, flags.EscrowPassphraseFlag, flags.EscrowThresholdFlag},
				Action: generateKey,
			},
			{
				Name:   "rotate-key",
				Usage:  "Replace the API key of an existing node and restart it",
				Flags:  []cli.Flag{flags.NodeFlag, flagKey, flagComposeFile, flagComposeBin, flagNoReload, flags.EscrowFlag, flags.EscrowPassphraseFlag, flags.EscrowThresholdFlag},
				Action: rotateKey,
			},
			{
				Name:   "verify-key",
				Usage:  "Check that a node's key file matches the apiKeyHash of its configuration",
				Flags:  []cli.Flag{flags.NodeFlag, flagAll, flagShowKey, flagCheckAPI, flagCheckPath, flagHost},
				Action: verifyKey,
			},
			{
				Name:   "restore-key",
				Usage:  "Re-apply a node's escrowed API key",
				Flags:  []cli.Flag{flags.NodeFlag, flags.EscrowFlag, flags.EscrowPassphraseFlag, flags.EscrowThresholdFlag, flagComposeFile, flagComposeBin, flagNoReload},
				Action: restoreKey,
			},
			{
				Name:   "generate-configs",
				Usage:  "Create the devnet layout with a configuration and a fresh key for every node",
				Flags:  []cli.Flag{flagNodes, flags.EscrowFlag, flags.EscrowPassphraseFlag, flags.EscrowThresholdFlag},
				Action: generateConfigs,
			},
			{
				Name:   "generate-compose",
				Usage:  "Write a docker-compose file running one container per node",
				Flags:  []cli.Flag{flagNodes, flagOutput, flagImage, flagJar, flagHeap},
				Action: generateCompose,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
