package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/aftercredits/internal/addon"
	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/httpx"
)

var publishAPIURL string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Register the add-on with the Stremio directory",
	Long: `Publish sends the public manifest URL to the Stremio add-on directory so
the add-on shows up in the community catalog. The URL comes from --addon-url
or ADDON_URL and must end in /manifest.json.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("addon-url", "", "public manifest URL")
	publishCmd.Flags().StringVar(&publishAPIURL, "api-url", addon.DefaultAPIURL, "Stremio directory API")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.AddonURL == "" {
		return &config.Error{Field: "server.addon_url", Err: fmt.Errorf("set --addon-url or ADDON_URL")}
	}

	resp, err := addon.Publish(cmd.Context(), newPublishClient(cfg), publishAPIURL, cfg.AddonURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published %s\n", cfg.AddonURL)
	if len(resp) > 0 {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return nil
}

// newPublishClient reuses the source timeout. POSTs are never retried.
func newPublishClient(cfg *config.Config) *http.Client {
	return httpx.New(httpx.Options{Timeout: cfg.Sources.Timeout}).HTTPClient()
}
