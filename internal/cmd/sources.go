package cmd

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/aftercredits/internal/cache"
	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/httpx"
	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List stinger sources in the configured priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := renderSources(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// renderSources lists every known source. Sources outside the configured
// order are shown last as disabled.
func renderSources(cfg *config.Config) (string, error) {
	ids := cache.New[int](cache.NewMemory(), cache.NamespaceTMDB, cfg.Cache.TTL)
	registry, err := buildRegistry(cfg, httpx.New(httpx.Options{}), ids, logging.Nop())
	if err != nil {
		return "", err
	}

	priority := make(map[provider.SourceName]int, len(cfg.Sources.Order))
	names := make([]provider.SourceName, 0, len(provider.Known))
	for i, name := range cfg.Sources.Order {
		priority[name] = i + 1
		names = append(names, name)
	}
	for _, name := range provider.Known {
		if _, ok := priority[name]; !ok {
			names = append(names, name)
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Source", "Description", "Auth", "Status", "Notes"})
	for _, name := range names {
		src, ok := registry.Get(name)
		if !ok {
			continue
		}
		caps := src.Capabilities()

		pos, auth, status := "-", "none", "enabled"
		if p, ok := priority[name]; ok {
			pos = strconv.Itoa(p)
		} else {
			status = "disabled"
		}
		if caps.RequiresAuth {
			auth = "api key"
			if !caps.Configured && status == "enabled" {
				status = "missing key"
			}
		}
		tw.AppendRow(table.Row{pos, name, src.Description(), auth, status, caps.Notes})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, WidthMax: 48},
		{Number: 6, WidthMax: 40},
	})
	return tw.Render(), nil
}
