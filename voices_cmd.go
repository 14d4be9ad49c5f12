package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	voicesFormat string
	voicesWait   time.Duration

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the voices of the speech engine",
		Long:    paragraph(fmt.Sprintf("\n%s the voices the engine offers. The voice picked when none is configured is marked with *.", keyword("List"))),
		Example: paragraph("murmur voices\nmurmur voices --engine edge --format yaml"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if voicesFormat != "table" && voicesFormat != "yaml" {
				return fmt.Errorf("unknown format %q: use table or yaml", voicesFormat)
			}

			sess, err := newSession()
			if err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					log.Warn("unable to close engine", "error", err)
				}
			}()
			if sess.engine == nil {
				return speech.ErrNoEngine
			}

			voices := sess.waitForVoices(cmd.Context(), voicesWait)
			if voicesFormat == "yaml" {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer func() { _ = enc.Close() }()
				return enc.Encode(voices) //nolint:wrapcheck
			}
			return writeVoiceTable(cmd.OutOrStdout(), voices)
		},
	}
)

func init() {
	voicesCmd.Flags().StringVar(&voicesFormat, "format", "table", "output format (table or yaml)")
	voicesCmd.Flags().DurationVar(&voicesWait, "wait", 3*time.Second, "how long to wait for the engine to list its voices")
}

// writeVoiceTable prints voices in aligned columns, marking the default.
func writeVoiceTable(w io.Writer, voices []speech.Voice) error {
	if len(voices) == 0 {
		_, err := fmt.Fprintln(w, "no voices available")
		return err //nolint:wrapcheck
	}

	def, _ := speech.DefaultVoice(voices)
	nameWidth, langWidth := runewidth.StringWidth("NAME"), runewidth.StringWidth("LANG")
	for _, v := range voices {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
		langWidth = max(langWidth, runewidth.StringWidth(v.Lang))
	}

	var b strings.Builder
	row := func(mark, name, lang, id string) {
		b.WriteString(mark)
		b.WriteString(" ")
		b.WriteString(runewidth.FillRight(name, nameWidth))
		b.WriteString("  ")
		b.WriteString(runewidth.FillRight(lang, langWidth))
		b.WriteString("  ")
		b.WriteString(id)
		b.WriteString("\n")
	}
	row(" ", "NAME", "LANG", "ID")
	for _, v := range voices {
		mark := " "
		if v.ID == def.ID {
			mark = "*"
		}
		row(mark, v.Name, v.Lang, v.ID)
	}

	_, err := io.WriteString(w, b.String())
	return err //nolint:wrapcheck
}
