package config_test

import (
	"fmt"

	"github.com/wonny/krxscan/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Workers: %d\n", cfg.Scan.Workers)
	fmt.Printf("Universe: %s (KOSPI %d / KOSDAQ %d)\n",
		cfg.Universe.Source, cfg.Universe.KOSPILimit, cfg.Universe.KOSDAQLimit)
}
