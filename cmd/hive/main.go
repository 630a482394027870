// Package main is the entry point for the Hive gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/howard-nolan/hive/internal/config"
	"github.com/howard-nolan/hive/internal/federation"
)

func main() {
	root := &cobra.Command{
		Use:   "hive",
		Short: "Hive routes LLM requests, runs agent loops, and federates with LAN peers",
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newIdentityCommand(&configPath))
	root.AddCommand(newPeersCommand(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var log *zap.Logger
	var err error
	if cfg.Env == "development" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		log = zap.NewNop()
	}
	return log
}

func loadConfigOrExit(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newIdentityCommand prints (and, on first run, generates) this node's
// federation identity.
func newIdentityCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show or generate this node's federation identity",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfigOrExit(*configPath)
			log := newLogger(cfg)
			defer log.Sync()

			if name == "" {
				hostname, _ := os.Hostname()
				name = hostname
			}

			identity := federation.LoadOrGenerateIdentity(log, cfg.Federation.IdentityFile, name)
			fmt.Printf("peer_id:  %s\n", identity.PeerID)
			fmt.Printf("name:     %s\n", identity.Name)
			fmt.Printf("version:  %s\n", identity.Version)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "node name to use if no identity file exists yet")
	return cmd
}

// newPeersCommand prints every peer this node currently knows about.
func newPeersCommand(configPath *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List known federation peers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfigOrExit(*configPath)
			log := newLogger(cfg)
			defer log.Sync()

			registry := federation.LoadPeerRegistryOrDefault(log, cfg.Federation.PeerRegistryFile)
			peers := registry.ListAll()

			if format == "yaml" {
				printPeersYAML(peers)
				return
			}

			if len(peers) == 0 {
				fmt.Println("no known peers")
				return
			}
			for _, p := range peers {
				fmt.Printf("%s  %-20s %-12s %s\n", p.ID, p.Identity.Name, p.State, p.Addr)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or yaml")
	return cmd
}

// printPeersYAML dumps the full peer snapshot as YAML, for debugging a
// registry's on-disk shape without cross-referencing the JSON field names.
func printPeersYAML(peers []federation.PeerInfo) {
	out, err := yaml.Marshal(peers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render peers as yaml: %v\n", err)
		return
	}
	fmt.Print(string(out))
}
