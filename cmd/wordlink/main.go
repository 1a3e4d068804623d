// Copyright 2025 The WordLink Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the entity linking server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

WordLink finds the places where a markdown text mentions another note of the
same vault, by the note's file name or by one of its aliases, and reports them
as link spans. It can operate as a MessagePack IPC server for integration with
text editors, or from the command line for batch linking and debugging.

Names are indexed in a character trie. A single left to right pass over the
text keeps one traversal per possible match start, so all names are found in
one scan whatever their count. The raw candidates are then filtered by word
boundaries, notes the text already links to, and excluded regions such as code
and headings, and resolved into non-overlapping matches.

# Usage

Start the server on the vault in the current directory:

	wordlink serve

Use another vault and enable debug mode:

	wordlink serve --vault ~/notes -d

List the mentions found in one note, or rewrite them as wikilinks:

	wordlink link daily/2025-06-01.md
	wordlink link daily/2025-06-01.md --rewrite
	wordlink link daily/2025-06-01.md --write

Run the interactive CLI for testing:

	wordlink cli -l 10

# Configuration

Runtime configuration is managed through a TOML file:

	[matching]
	any_part = false
	beginning = true
	end = true
	case_sensitive = false
	capital_letter_proportion = 0.75
	include_aliases = true
	exclude_linked = true
	only_link_once = true

	[locations]
	include_all = true
	excluded = ["templates"]

	[vault]
	root = "~/notes"
	debounce_ms = 300

The config file is automatically created with defaults if it doesn't exist.
Use `wordlink config` to print the active settings.

# Note Metadata

Every .md file outside hidden folders is a note. Its front matter may declare:

	aliases: [GL, Terms]
	tags: [reference]
	linker-match-case: [GL]
	linker-ignore-case: [NASA]
	linker-exclude: [Terms]

Names listed under linker-match-case only match with the exact same letter
case, names under linker-ignore-case match in any case. Without either, a
name made mostly of capitals is treated as case sensitive.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout, one response per
request. Link requests carry the note path and its current text:

	{"id": "req1", "action": "link", "path": "Daily.md", "text": "Met the GL team."}

and receive byte offsets and target notes:

	{"id": "req1", "links": [{"s": 8, "e": 10, "x": "GL", "to": ["Glossary.md"], "a": true}], "c": 1, "t": 85}

See package server for the complete list of messages.

# Server Mode

The server keeps the index in memory and watches the vault. Edited notes are
reloaded after a short debounce, so renamed aliases apply to the next request.

	srv := server.New(index, store, cfg.Server, nil)
	err := srv.Serve(ctx, os.Stdin, os.Stdout)

Parsed note metadata is cached in a bbolt file under the config dir, so a
restart only parses the notes modified since the last run. Set vault.cache to
"off" to disable it.
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/wordlink/cmd/wordlink/cmd"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
