package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastiangx/wordlink/internal/cli"
	"github.com/bastiangx/wordlink/internal/utils"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"
)

var (
	rewriteFlag bool
	writeFlag   bool
)

var linkCmd = &cobra.Command{
	Use:   "link <note>",
	Short: "Show or apply the links found in a note",
	Long: "Annotates a note of the vault. By default every mention is listed with its line " +
		"and target. --rewrite prints the note with the mentions turned into wikilinks, " +
		"--write saves that result in place.",
	Args: cobra.ExactArgs(1),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().BoolVar(&rewriteFlag, "rewrite", false, "Print the note with mentions turned into wikilinks")
	linkCmd.Flags().BoolVarP(&writeFlag, "write", "w", false, "Rewrite the note in place")
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := noteID(s.store.Root(), args[0])
	if err != nil {
		return err
	}
	content, err := s.store.Read(id)
	if err != nil {
		return err
	}
	content = norm.NFC.String(content)
	links, _ := s.index.AnnotateDocument(id, content, nil)

	out := cmd.OutOrStdout()
	switch {
	case writeFlag:
		if len(links) == 0 {
			fmt.Fprintln(out, "nothing to link")
			return nil
		}
		info, err := os.Stat(s.store.Path(id))
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.store.Path(id), []byte(linker.Rewrite(content, links)), info.Mode()); err != nil {
			return err
		}
		fmt.Fprintf(out, "linked %d mentions in %s\n", len(links), id)
	case rewriteFlag:
		fmt.Fprint(out, linker.Rewrite(content, links))
	default:
		printLinks(out, content, links)
	}
	return nil
}

// noteID maps a path given on the command line to a note ID. Relative paths
// are tried against the working directory first, then the vault root.
func noteID(root, arg string) (string, error) {
	path := utils.GetAbsolutePath(arg)
	if !utils.FileExists(path) {
		path = filepath.Join(root, filepath.FromSlash(arg))
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is not inside the vault %s", arg, root)
	}
	return filepath.ToSlash(rel), nil
}

func printLinks(out io.Writer, content string, links []linker.Link) {
	if len(links) == 0 {
		fmt.Fprintln(out, "no links")
		return
	}
	for _, l := range links {
		lineStart := strings.LastIndexByte(content[:l.Start], '\n') + 1
		lineEnd := strings.IndexByte(content[l.Start:], '\n')
		if lineEnd < 0 {
			lineEnd = len(content)
		} else {
			lineEnd += l.Start
		}
		line := strings.Count(content[:l.Start], "\n") + 1

		local := l
		local.Start -= lineStart
		local.End -= lineStart
		fmt.Fprintf(out, "%4d: %s\n      -> %s\n", line,
			cli.Highlight(content[lineStart:lineEnd], []linker.Link{local}, cfg.CLI.Color), l.Target())
	}
}
