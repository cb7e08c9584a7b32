package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yangguo/epub2audio/internal/config"
	"github.com/yangguo/epub2audio/internal/engine"
	"github.com/yangguo/epub2audio/pkg/types"
)

var (
	voicesLang string

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List the voices a speech engine can narrate with",
		Args:  cobra.NoArgs,
		RunE:  runVoices,
	}
)

func runVoices(cmd *cobra.Command, _ []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine.Name = engineName
	}

	reg, err := engine.BuildRegistry(cfg.Engine)
	if err != nil {
		return fmt.Errorf("failed to build engine registry: %w", err)
	}
	defer reg.Close()
	eng, err := reg.Get(cfg.Engine.Name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	voices, err := eng.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}
	if voicesLang != "" {
		voices = filterVoicesByLanguage(voices, voicesLang)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLANGUAGES\tGENDER\tNAME")
	for _, v := range voices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, strings.Join(v.Languages, ","), v.Gender, v.Name)
	}
	return w.Flush()
}

// filterVoicesByLanguage keeps voices that speak the given language.
// The match is by prefix, so "en" also matches "en-US".
func filterVoicesByLanguage(voices []types.Voice, lang string) []types.Voice {
	lang = strings.ToLower(lang)
	var matched []types.Voice
	for _, v := range voices {
		for _, l := range v.Languages {
			if strings.HasPrefix(strings.ToLower(l), lang) {
				matched = append(matched, v)
				break
			}
		}
	}
	return matched
}

func init() {
	voicesCmd.Flags().StringVar(&voicesLang, "lang", "", "only show voices for this language, e.g. en or en-US")
	rootCmd.AddCommand(voicesCmd)
}
