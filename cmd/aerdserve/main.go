package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aerlab/aerdctl/internal/aer/catalog"
	"github.com/aerlab/aerdctl/internal/config"
	"github.com/aerlab/aerdctl/internal/logging"
	"github.com/aerlab/aerdctl/internal/serve"
)

func main() {
	configPath := flag.String("config", "", "serve config file (toml)")
	flag.Parse()

	logging.ConfigureRuntime()

	sc := defaultServeConfig()
	if *configPath != "" {
		loaded, err := loadServeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "aerdserve: %v\n", err)
			os.Exit(1)
		}
		sc = loaded
	}

	toolkit, err := config.Load(sc.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aerdserve: %v\n", err)
		os.Exit(1)
	}
	toolkit = restrictDatasets(toolkit, sc.Datasets)

	registry, err := catalog.Build(toolkit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aerdserve: %v\n", err)
		os.Exit(1)
	}

	if err := serve.New(registry, sc.Options).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "aerdserve: %v\n", err)
		os.Exit(1)
	}
}
