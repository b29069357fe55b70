package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Scan a city's streets for business leads",
	Long: `Crawl the business directory street by street for one city.

Streets come from --streets (comma-separated) or --streets-file (one street
per line, # comments allowed). Results are fuzzy-deduplicated against the
division's existing leads, persisted, geocoded, and matched to territories.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		division, _ := cmd.Flags().GetString("division")
		if city == "" || division == "" {
			return eris.New("crawl: --city and --division are required")
		}

		streets, err := parseStreets(cmd)
		if err != nil {
			return err
		}
		if len(streets) == 0 {
			return eris.New("crawl: no streets given, use --streets or --streets-file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scanner := initScanner(st)

		zap.L().Info("starting city scan",
			zap.String("city", city),
			zap.String("division", division),
			zap.Int("streets", len(streets)),
		)

		result, err := scanner.ScanCity(ctx, streets, city, division)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		zap.L().Info("city scan complete",
			zap.Int("streets_scanned", result.StreetsScanned),
			zap.Int("leads_found", result.LeadsFound),
			zap.Int("leads_created", result.LeadsCreated),
			zap.Int("geocoded", result.Geocoded),
			zap.Int("areas_assigned", result.AreasAssigned),
		)
		return nil
	},
}

func init() {
	crawlCmd.Flags().String("city", "", "city to scan")
	crawlCmd.Flags().String("division", "", "division the leads belong to")
	crawlCmd.Flags().String("streets", "", "comma-separated street names")
	crawlCmd.Flags().String("streets-file", "", "file with one street name per line")
	rootCmd.AddCommand(crawlCmd)
}

func parseStreets(cmd *cobra.Command) ([]string, error) {
	streetsStr, _ := cmd.Flags().GetString("streets")
	streetsFile, _ := cmd.Flags().GetString("streets-file")

	var streets []string
	if streetsStr != "" {
		streets = append(streets, splitAndTrim(streetsStr)...)
	}
	if streetsFile != "" {
		f, err := os.Open(streetsFile)
		if err != nil {
			return nil, eris.Wrapf(err, "open streets file %s", streetsFile)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			streets = append(streets, line)
		}
		if err := sc.Err(); err != nil {
			return nil, eris.Wrapf(err, "read streets file %s", streetsFile)
		}
	}
	return streets, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
