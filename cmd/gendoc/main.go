// Command gendoc regenerates the markdown docs, man pages and shell
// completions for the devmux CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/devmux/devmux/cmd/devmux/command"
	"github.com/devmux/devmux/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := command.Root()

	if err := doc.GenMarkdownTree(rootCmd, "./docs"); err != nil {
		return err
	}

	header := &doc.GenManHeader{
		Title:   "DEVMUX",
		Section: "1",
		Source:  "devmux " + version.String(),
		Manual:  "Devmux Manual",
	}
	if err := doc.GenManTree(rootCmd, header, "./etc/man/man1"); err != nil {
		return err
	}

	if err := rootCmd.GenBashCompletionFile("./etc/completion/devmux.bash_completion.sh"); err != nil {
		return err
	}
	return rootCmd.GenZshCompletionFile("./etc/completion/devmux.zsh_completion")
}
