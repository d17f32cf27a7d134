package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/aer/catalog"
	"github.com/aerlab/aerdctl/internal/config"
	"github.com/aerlab/aerdctl/internal/fetch"
	"github.com/aerlab/aerdctl/internal/logging"
)

const usage = `usage: aerdctl <command> [flags]

commands:
  preload   convert raw distributions into working-dir intermediates
  summary   print dataset composition
  split     print participant-disjoint split membership
  fetch     stage a dataset archive from a local or ssh source
`

func main() {
	logging.ConfigureRuntime()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "preload":
		cmdPreload(os.Args[2:])
	case "summary":
		cmdSummary(os.Args[2:])
	case "split":
		cmdSplit(os.Args[2:])
	case "fetch":
		cmdFetch(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "aerdctl: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func cmdPreload(args []string) {
	fs := flag.NewFlagSet("preload", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "toolkit config file")
	datasetID := fs.String("dataset", "", "dataset id (default: all configured)")
	_ = fs.Parse(args)

	registry := buildRegistry(*configPath)

	ids := resolveIDs(registry, *datasetID)
	for _, id := range ids {
		ds, err := registry.Resolve(id)
		if err != nil {
			log.Fatal().Err(err).Str("dataset", id).Msg("resolve failed")
		}
		start := time.Now()
		if err := ds.Preload(); err != nil {
			log.Fatal().Err(err).Str("dataset", id).Msg("preload failed")
		}
		log.Info().
			Str("dataset", id).
			Dur("elapsed", time.Since(start)).
			Msg("preload complete")
	}
}

func cmdSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "toolkit config file")
	datasetID := fs.String("dataset", "", "dataset id (default: all configured)")
	_ = fs.Parse(args)

	registry := buildRegistry(*configPath)

	for _, id := range resolveIDs(registry, *datasetID) {
		ds := loadDataset(registry, id)
		fmt.Printf("%s (%s)\n", ds.Name(), id)
		fmt.Printf("  participants: %d\n", len(ds.ParticipantIDs()))
		fmt.Printf("  media:        %d\n", len(ds.MediaIDs()))
		fmt.Printf("  trials:       %d\n", len(ds.Trials()))
		for _, sig := range ds.Signals() {
			if meta, ok := ds.SignalMetadata(sig); ok {
				fmt.Printf("  signal %-4s  %d channels @ %d Hz\n", sig, meta.Channels, meta.SampleRate)
			}
		}
	}
}

func cmdSplit(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "toolkit config file")
	datasetID := fs.String("dataset", "", "dataset id")
	fractionsRaw := fs.String("fractions", "0.7,0.3", "comma-separated split fractions")
	seed := fs.Int64("seed", 0, "rng seed (default: time-based)")
	_ = fs.Parse(args)

	if *datasetID == "" {
		log.Fatal().Msg("split requires -dataset")
	}

	fractions, err := parseFractions(*fractionsRaw)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fractions")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	registry := buildRegistry(*configPath)
	ds := loadDataset(registry, *datasetID)

	sets, err := aer.DatasetSplits(ds, fractions, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatal().Err(err).Msg("split failed")
	}

	fmt.Printf("seed: %d\n", *seed)
	for _, set := range sets {
		participants := set.ParticipantIDs()
		sort.Ints(participants)
		fmt.Printf("%s: %d trials, participants %v\n", set.Name(), len(set.Trials()), participants)
	}
}

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	remote := fs.String("remote", "", "remote archive path")
	local := fs.String("local", "", "local destination path")
	checksum := fs.String("checksum", "", "expected sha256 (hex); default asks the host via sha256sum")
	sshHost := fs.String("ssh-host", "", "archive host (empty: local copy)")
	sshPort := fs.String("ssh-port", "", "archive host ssh port")
	sshUser := fs.String("ssh-user", "", "archive host ssh user")
	sshKey := fs.String("ssh-key", "", "ssh private key path")
	knownHosts := fs.String("known-hosts", "", "known_hosts path")
	insecure := fs.Bool("insecure", false, "skip host key checking")
	timeout := fs.Duration("timeout", 30*time.Second, "ssh dial timeout")
	_ = fs.Parse(args)

	if *remote == "" || *local == "" {
		log.Fatal().Msg("fetch requires -remote and -local")
	}

	var runner fetch.Runner = fetch.LocalRunner{}
	if *sshHost != "" {
		runner = fetch.SSHRunner{
			Host:                        *sshHost,
			Port:                        *sshPort,
			User:                        *sshUser,
			KeyPath:                     *sshKey,
			KnownHostsPath:              *knownHosts,
			InsecureSkipHostKeyChecking: *insecure,
			Timeout:                     *timeout,
		}
	}

	if err := fetch.Stage(runner, *remote, *local, fetch.Options{Checksum: *checksum}); err != nil {
		log.Fatal().Err(err).Msg("fetch failed")
	}
}

func buildRegistry(configPath string) *aer.Registry {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	registry, err := catalog.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dataset registry")
	}
	return registry
}

func loadDataset(registry *aer.Registry, id string) aer.Dataset {
	ds, err := registry.Resolve(id)
	if err != nil {
		log.Fatal().Err(err).Str("dataset", id).Msg("resolve failed")
	}
	if err := ds.LoadTrials(); err != nil {
		log.Fatal().Err(err).Str("dataset", id).Msg("load failed")
	}
	return ds
}

func resolveIDs(registry *aer.Registry, datasetID string) []string {
	if datasetID != "" {
		return []string{datasetID}
	}
	metas := registry.ListMetadata()
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		log.Fatal().Msg("no datasets configured")
	}
	return ids
}

func parseFractions(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	fractions := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad fraction %q", p)
		}
		fractions = append(fractions, f)
	}
	return fractions, nil
}
