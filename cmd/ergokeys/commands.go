package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/cmd/flags"
	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeapi"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
	"github.com/ruteri/ergo-devnet-provisioning/orchestrator"
	"github.com/ruteri/ergo-devnet-provisioning/provisioner"
	"github.com/ruteri/ergo-devnet-provisioning/storage"
	"github.com/urfave/cli/v2"
)

const (
	exitFailure  = 1
	exitMismatch = 2
)

const separator = "--------------------------------------------------"

func layoutFrom(cCtx *cli.Context) nodeconfig.Layout {
	return nodeconfig.NewLayout(cCtx.String(flags.WorkdirFlag.Name), cCtx.String(flags.PrefixFlag.Name))
}

func nodeFrom(cCtx *cli.Context) (interfaces.NodeID, error) {
	if !cCtx.IsSet(flags.NodeFlag.Name) {
		return 0, fmt.Errorf("--%s is required", flags.NodeFlag.Name)
	}
	node := interfaces.NodeID(cCtx.Uint(flags.NodeFlag.Name))
	return node, node.Validate()
}

func escrowFrom(cCtx *cli.Context, log *slog.Logger) (interfaces.SecretStore, error) {
	uris := cCtx.StringSlice(flags.EscrowFlag.Name)
	if len(uris) == 0 {
		return nil, nil
	}
	factory := storage.NewStoreFactory(log)

	var escrow interfaces.SecretStore
	var err error
	if threshold := cCtx.Int(flags.EscrowThresholdFlag.Name); threshold > 0 {
		escrow, err = factory.CreateShamirStore(uris, threshold)
	} else {
		escrow, err = factory.CreateMultiStore(uris)
	}
	if err != nil {
		return nil, err
	}
	if passphrase := cCtx.String(flags.EscrowPassphraseFlag.Name); passphrase != "" {
		return storage.NewSealedStore(escrow, []byte(passphrase))
	}
	return escrow, nil
}

func reloaderFrom(cCtx *cli.Context, layout nodeconfig.Layout, log *slog.Logger) (interfaces.NodeReloader, error) {
	if cCtx.Bool(flagNoReload.Name) {
		return nil, nil
	}
	composeFile := cCtx.String(flagComposeFile.Name)
	if !filepath.IsAbs(composeFile) {
		composeFile = filepath.Join(layout.Root, composeFile)
	}
	return orchestrator.NewComposeReloader(cCtx.String(flagComposeBin.Name), composeFile, layout, nil, log)
}

func newProvisioner(cCtx *cli.Context, log *slog.Logger, reloader interfaces.NodeReloader, escrow interfaces.SecretStore) (*provisioner.KeyProvisioner, error) {
	return provisioner.NewKeyProvisioner(provisioner.Config{
		Layout:      layoutFrom(cCtx),
		NetworkType: cCtx.String(flags.NetworkFlag.Name),
		Reloader:    reloader,
		Escrow:      escrow,
		Log:         log,
	})
}

// exitErr maps domain errors to a process exit status.
func exitErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, interfaces.ErrNotInitialized) {
		return cli.Exit(fmt.Sprintf("Error: %v. Are you in the devnet directory?", err), exitFailure)
	}
	return cli.Exit(fmt.Sprintf("Error: %v", err), exitFailure)
}

func generateKey(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer

	if cCtx.String(flagKey.Name) != "" {
		fmt.Fprintln(out, "Using provided API key")
	} else {
		fmt.Fprintln(out, "Generated random API key")
	}

	if !cCtx.IsSet(flags.NodeFlag.Name) {
		secret, hash, err := provisioner.NewKeyPair(cCtx.String(flagKey.Name))
		if err != nil {
			return exitErr(err)
		}
		printKeyDetails(out, secret, hash)
		return nil
	}

	node, err := nodeFrom(cCtx)
	if err != nil {
		return exitErr(err)
	}
	escrow, err := escrowFrom(cCtx, log)
	if err != nil {
		return exitErr(err)
	}
	p, err := newProvisioner(cCtx, log, nil, escrow)
	if err != nil {
		return exitErr(err)
	}

	result, err := p.Generate(cCtx.Context, node, cCtx.String(flagKey.Name))
	if err != nil {
		return exitErr(err)
	}
	printKeyDetails(out, result.Secret, result.Hash)
	printResultNotes(out, result, layoutFrom(cCtx))
	return nil
}

func rotateKey(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer
	layout := layoutFrom(cCtx)

	node, err := nodeFrom(cCtx)
	if err != nil {
		return exitErr(err)
	}
	escrow, err := escrowFrom(cCtx, log)
	if err != nil {
		return exitErr(err)
	}
	reloader, err := reloaderFrom(cCtx, layout, log)
	if err != nil {
		return exitErr(err)
	}
	p, err := newProvisioner(cCtx, log, reloader, escrow)
	if err != nil {
		return exitErr(err)
	}

	result, err := p.Rotate(cCtx.Context, node, cCtx.String(flagKey.Name))
	if result != nil {
		fmt.Fprintf(out, "\nAPI key for node %d has been updated:\n", node)
		fmt.Fprintf(out, "New API Key: %s\n", result.Secret)
		fmt.Fprintf(out, "New Hash: %s\n", result.Hash)
		printResultNotes(out, result, layout)
	}
	if errors.Is(err, interfaces.ErrReloadFailed) {
		return cli.Exit(fmt.Sprintf("Error: %v\nThe key files are updated; restart %s manually.", err, layout.ServiceName(node)), exitFailure)
	}
	return exitErr(err)
}

func restoreKey(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer
	layout := layoutFrom(cCtx)

	node, err := nodeFrom(cCtx)
	if err != nil {
		return exitErr(err)
	}
	escrow, err := escrowFrom(cCtx, log)
	if err != nil {
		return exitErr(err)
	}
	if escrow == nil {
		return cli.Exit(fmt.Sprintf("Error: --%s is required", flags.EscrowFlag.Name), exitFailure)
	}
	reloader, err := reloaderFrom(cCtx, layout, log)
	if err != nil {
		return exitErr(err)
	}
	p, err := newProvisioner(cCtx, log, reloader, escrow)
	if err != nil {
		return exitErr(err)
	}

	result, err := p.Restore(cCtx.Context, node)
	if result != nil {
		fmt.Fprintf(out, "Restored API key of node %d from %s\n", node, escrow.Name())
		fmt.Fprintf(out, "Hash: %s\n", result.Hash)
		printResultNotes(out, result, layout)
	}
	return exitErr(err)
}

func verifyKey(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer
	layout := layoutFrom(cCtx)

	p, err := newProvisioner(cCtx, log, nil, nil)
	if err != nil {
		return exitErr(err)
	}
	if err := layout.Initialized(); err != nil {
		return exitErr(err)
	}

	var results []*interfaces.Verification
	if cCtx.Bool(flagAll.Name) {
		results, err = p.VerifyAll(cCtx.Context)
		if err != nil {
			return exitErr(err)
		}
		if len(results) == 0 {
			return cli.Exit(fmt.Sprintf("Error: no node configurations found in %s", layout.ConfigDir), exitFailure)
		}
		printVerificationTable(out, results)
	} else {
		node, err := nodeFrom(cCtx)
		if err != nil {
			return exitErr(err)
		}
		v, err := p.Verify(cCtx.Context, node)
		if err != nil {
			return exitErr(err)
		}
		if v.Result == interfaces.VerifyNotFound {
			return cli.Exit(fmt.Sprintf("Error: Configuration files for node %d not found", node), exitFailure)
		}
		var secret []byte
		if cCtx.Bool(flagShowKey.Name) {
			if secret, err = os.ReadFile(layout.KeyPath(node)); err != nil {
				return exitErr(fmt.Errorf("failed to read key file: %w", err))
			}
		}
		printVerification(out, v, layout.KeyPath(node), secret, cCtx.String(flagHost.Name))
		results = append(results, v)
	}

	if cCtx.Bool(flagCheckAPI.Name) {
		if err := checkNodeAPIs(cCtx, out, layout, results); err != nil {
			return exitErr(err)
		}
	}

	status := 0
	for _, v := range results {
		switch v.Result {
		case interfaces.VerifyMismatch:
			status = exitMismatch
		case interfaces.VerifyNotFound:
			if status == 0 {
				status = exitFailure
			}
		}
	}
	if status == exitMismatch {
		return cli.Exit("Mismatch: run rotate-key or restore-key for the affected nodes", exitMismatch)
	}
	if status != 0 {
		return cli.Exit("Error: some node files are missing", status)
	}
	return nil
}

func checkNodeAPIs(cCtx *cli.Context, out io.Writer, layout nodeconfig.Layout, results []*interfaces.Verification) error {
	host := cCtx.String(flagHost.Name)
	fmt.Fprintln(out, "\nChecking keys against node REST APIs:")
	for _, v := range results {
		secret, err := os.ReadFile(layout.KeyPath(v.Node))
		if err != nil {
			fmt.Fprintf(out, "node %d: no key file\n", v.Node)
			continue
		}
		client := nodeapi.NewClientForNode(host, nodeconfig.DefaultPorts, v.Node)
		res, err := client.CheckKey(cCtx.Context, cCtx.String(flagCheckPath.Name), string(secret))
		if err != nil {
			fmt.Fprintf(out, "node %d: %v\n", v.Node, err)
			continue
		}
		verdict := "rejected"
		if res.Accepted {
			verdict = "accepted"
		}
		fmt.Fprintf(out, "node %d: %s %s (HTTP %d, %s)\n", v.Node, res.URL, verdict, res.StatusCode, res.Duration.Round(time.Millisecond))
	}
	return cCtx.Context.Err()
}

func generateConfigs(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer

	escrow, err := escrowFrom(cCtx, log)
	if err != nil {
		return exitErr(err)
	}
	p, err := newProvisioner(cCtx, log, nil, escrow)
	if err != nil {
		return exitErr(err)
	}

	results, err := p.ProvisionFleet(cCtx.Context, cCtx.Int(flagNodes.Name))
	for _, r := range results {
		fmt.Fprintf(out, "Generated configuration for node %d\n", r.Node)
	}
	return exitErr(err)
}

func generateCompose(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	out := cCtx.App.Writer
	layout := layoutFrom(cCtx)

	opts := orchestrator.DefaultComposeOptions(cCtx.Int(flagNodes.Name))
	opts.Network = cCtx.String(flags.NetworkFlag.Name)
	if v := cCtx.String(flagImage.Name); v != "" {
		opts.Image = v
	}
	if v := cCtx.String(flagJar.Name); v != "" {
		opts.NodeJar = v
	}
	if v := cCtx.String(flagHeap.Name); v != "" {
		opts.HeapSize = v
	}

	path := cCtx.String(flagOutput.Name)
	if !filepath.IsAbs(path) {
		path = filepath.Join(layout.Root, path)
	}

	compose, err := orchestrator.WriteCompose(path, layout, opts)
	if err != nil {
		return exitErr(err)
	}
	log.Info("Wrote compose file", slog.String("path", path), slog.Int("services", len(compose.Services)))
	fmt.Fprintf(out, "Wrote %s with %d node services\n", path, len(compose.Services))
	return nil
}

func printKeyDetails(out io.Writer, secret, hash string) {
	fmt.Fprintln(out, "\nAPI Key Details:")
	fmt.Fprintln(out, separator)
	fmt.Fprintf(out, "API Key: %s\n", secret)
	fmt.Fprintf(out, "Hash:    %s\n", hash)
	fmt.Fprintln(out, separator)
	fmt.Fprintln(out, "\nTo use this in your ergo.conf:")
	fmt.Fprintf(out, "apiKeyHash = \"%s\"\n", hash)
}

func printResultNotes(out io.Writer, result *provisioner.KeyResult, layout nodeconfig.Layout) {
	var notes []string
	if result.ConfigCreated {
		notes = append(notes, "configuration created from template")
	}
	if result.Escrowed {
		notes = append(notes, "secret escrowed")
	}
	if result.Reloaded {
		notes = append(notes, layout.ServiceName(result.Node)+" restarted")
	}
	if len(notes) > 0 {
		fmt.Fprintf(out, "\nNode %d: %s\n", result.Node, strings.Join(notes, ", "))
	}
}

// printVerification prints the plaintext key only when secret is non-nil.
func printVerification(out io.Writer, v *interfaces.Verification, keyPath string, secret []byte, host string) {
	fmt.Fprintf(out, "\nVerifying Node %d:\n", v.Node)
	fmt.Fprintln(out, separator)
	if secret != nil {
		fmt.Fprintf(out, "API Key: %s\n", secret)
	} else {
		fmt.Fprintf(out, "API Key file: %s\n", keyPath)
	}
	fmt.Fprintf(out, "API Key length: %d\n", v.KeyLength)
	fmt.Fprintf(out, "Stored Hash:    %s\n", v.StoredHash)
	fmt.Fprintf(out, "Computed Hash:  %s\n", v.ComputedHash)
	fmt.Fprintf(out, "Match: %t\n", v.OK())
	fmt.Fprintln(out, "\nFor curl testing:")
	port := nodeconfig.DefaultPorts.APIPort(v.Node)
	if secret != nil {
		fmt.Fprintln(out, nodeapi.CurlHint(host, port, string(secret)))
		return
	}
	fmt.Fprintln(out, nodeapi.CurlHintFromFile(host, port, keyPath))
}

func printVerificationTable(out io.Writer, results []*interfaces.Verification) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tRESULT\tSTORED HASH\tCOMPUTED HASH")
	for _, v := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Node, v.Result, orDash(v.StoredHash), orDash(v.ComputedHash))
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
