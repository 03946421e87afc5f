package config_test

import (
	"fmt"
	"time"

	"streampresence/internal/config"
	"streampresence/pkg/media"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Poll Interval:", cfg.Tracker.PollInterval)
	fmt.Println("Refresh Period:", cfg.Tracker.RefreshPeriod)
	fmt.Println("Web Port:", cfg.Web.Port)
	// Output:
	// Poll Interval: 5s
	// Refresh Period: 3m0s
	// Web Port: 8787
}

// Example of setting poll interval with validation
func ExampleConfig_SetPollInterval() {
	cfg := config.Default()

	// Valid interval
	if err := cfg.SetPollInterval(10 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Poll interval set to:", cfg.Tracker.PollInterval)
	}

	// Invalid interval (too low)
	if err := cfg.SetPollInterval(500 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Poll interval set to: 10s
	// Error: poll interval cannot be less than 1s
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	if err := cfg.RequireCredentials(); err != nil {
		fmt.Println("Missing credentials:", err)
	}

	// Output:
	// Configuration is valid
	// Missing credentials: DISCORD_CLIENT_ID is required
}

// Example of choosing the Discord application per service
func ExampleConfig_IdentityFor() {
	cfg := config.Default()
	cfg.Discord.ClientID = "100"
	cfg.Discord.NetflixClientID = "200"

	fmt.Println(cfg.IdentityFor(media.Netflix))
	fmt.Println(cfg.IdentityFor(media.DisneyPlus))
	// Output:
	// 200
	// 100
}
