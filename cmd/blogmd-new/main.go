// Package main provides the blogmd-new CLI for scaffolding documents.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/euforicio/blogmd/internal/config"
	"github.com/euforicio/blogmd/internal/scaffold"
)

func main() {
	flags := pflag.NewFlagSet("blogmd-new", pflag.ExitOnError)
	site := flags.StringP("site", "s", ".", "site root directory (located automatically when it contains no "+config.PostsDirName+")")
	dest := flags.StringP("dest", "d", "", "subdirectory inside the content store for the new document")
	draft := flags.Bool("draft", false, "create the document under "+config.DraftsDirName+" without a date prefix")
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}

	words := flags.Args()
	if len(words) == 0 {
		fmt.Fprintln(os.Stderr, "usage: blogmd-new [flags] <title words...>")
		flags.PrintDefaults()
		os.Exit(2)
	}

	start, err := filepath.Abs(*site)
	if err != nil {
		slog.Error("resolve site directory", slog.Any("err", err))
		os.Exit(1)
	}
	root, err := config.LocateRoot(start)
	if err != nil {
		slog.Error("locate site root", slog.Any("err", err))
		os.Exit(1)
	}

	path, err := scaffold.Create(scaffold.Options{
		Root:  root,
		Words: words,
		Dest:  *dest,
		Draft: *draft,
	})
	if err != nil {
		slog.Error("create document", slog.Any("err", err))
		os.Exit(1)
	}

	fmt.Println(path)
}
