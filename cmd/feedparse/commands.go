package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feedparse/app/feed"
	"github.com/lysyi3m/feedparse/app/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type globalOptions struct {
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"json" choice:"text" description:"Log output format"`
}

type fileArgs struct {
	Files []string `positional-arg-name:"FILE" required:"1" description:"Input file, - for stdin"`
}

// cli carries the streams shared by every subcommand.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	parser *feed.Parser
}

func newCLI(stdin io.Reader, stdout io.Writer) *flags.Parser {
	var opts globalOptions
	c := &cli{stdin: stdin, stdout: stdout, parser: feed.NewParser()}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logger.Setup(os.Stderr, opts.LogFormat, opts.Debug)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	parser.AddCommand("detect", "Detect feed formats",
		"Prints the detected format of every input.", &detectCommand{app: c})
	parser.AddCommand("parse", "Parse feeds",
		"Parses every input concurrently and prints the normalized feeds in argument order.", &parseCommand{app: c})
	parser.AddCommand("opml-import", "Read an OPML file",
		"Prints the subscriptions of an OPML document as a subscription list.", &opmlImportCommand{app: c})
	parser.AddCommand("opml-export", "Write an OPML file",
		"Reads a YAML subscription list and prints it as OPML 2.0.", &opmlExportCommand{app: c})

	return parser
}

func (c *cli) open(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(c.stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

func (c *cli) write(output string, docs ...any) error {
	switch output {
	case "json":
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
		}
		return nil
	default:
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
		}
		return enc.Close()
	}
}

type detectCommand struct {
	Args fileArgs `positional-args:"yes" required:"yes"`

	app *cli
}

func (cmd *detectCommand) Execute(_ []string) error {
	for _, name := range cmd.Args.Files {
		r, err := cmd.app.open(name)
		if err != nil {
			return err
		}
		feedType, _, err := feed.DetectReader(r)
		r.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		fmt.Fprintf(cmd.app.stdout, "%s\t%s\n", name, feedType)
	}
	return nil
}

type parseCommand struct {
	Format string   `short:"f" long:"format" default:"auto" choice:"auto" choice:"rss" choice:"atom" choice:"json" description:"Input format"`
	Output string   `short:"o" long:"output" default:"yaml" choice:"yaml" choice:"json" description:"Output format"`
	Jobs   int      `short:"j" long:"jobs" default:"4" description:"Number of inputs parsed concurrently"`
	Limit  int      `short:"n" long:"limit" default:"0" description:"Maximum entries per feed (0 means unlimited)"`
	Args   fileArgs `positional-args:"yes" required:"yes"`

	app *cli
}

func (cmd *parseCommand) Execute(_ []string) error {
	files := cmd.Args.Files
	results := make([]any, len(files))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, cmd.Jobs))

	for i, name := range files {
		g.Go(func() error {
			parsed, err := cmd.parseFile(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", name, err)
			}
			results[i] = parsed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return cmd.app.write(cmd.Output, results...)
}

// parseFile collects the whole feed, or streams just the first Limit
// entries and abandons the rest of the input.
func (cmd *parseCommand) parseFile(ctx context.Context, name string) (*feed.ParsedFeed, error) {
	r, err := cmd.app.open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	hint := feed.ParseFeedType(cmd.Format)

	if cmd.Limit <= 0 {
		return cmd.app.parser.ParseFormat(r, hint)
	}

	stream, err := cmd.app.parser.StreamFormat(ctx, r, hint)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	parsed := stream.Feed
	parsed.Entries = []feed.ParsedEntry{}
	for entry := range stream.All() {
		parsed.Entries = append(parsed.Entries, entry)
		if len(parsed.Entries) == cmd.Limit {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

type opmlImportCommand struct {
	Output string `short:"o" long:"output" default:"yaml" choice:"yaml" choice:"json" description:"Output format"`
	Args   struct {
		File string `positional-arg-name:"FILE" required:"yes" description:"OPML file, - for stdin"`
	} `positional-args:"yes" required:"yes"`

	app *cli
}

func (cmd *opmlImportCommand) Execute(_ []string) error {
	r, err := cmd.app.open(cmd.Args.File)
	if err != nil {
		return err
	}
	defer r.Close()

	feeds, err := cmd.app.parser.ParseOpml(r)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.Args.File, err)
	}

	doc := exportDocument{Subscriptions: make([]feed.OpmlSubscription, 0, len(feeds))}
	for _, f := range feeds {
		doc.Subscriptions = append(doc.Subscriptions, subscriptionFromOpml(f))
	}
	return cmd.app.write(cmd.Output, doc)
}

// subscriptionFromOpml flattens a nested category path into the single
// folder the generator understands.
func subscriptionFromOpml(f feed.OpmlFeed) feed.OpmlSubscription {
	return feed.OpmlSubscription{
		Title:   f.Title,
		XMLURL:  f.XMLURL,
		HTMLURL: f.HTMLURL,
		Folder:  strings.Join(f.Category, "/"),
	}
}

type exportDocument struct {
	Metadata      *feed.OpmlMetadata      `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Subscriptions []feed.OpmlSubscription `yaml:"subscriptions" json:"subscriptions"`
}

type opmlExportCommand struct {
	Title      string `long:"title" description:"Document title"`
	OwnerName  string `long:"owner-name" description:"Owner name"`
	OwnerEmail string `long:"owner-email" description:"Owner email"`
	Args       struct {
		File string `positional-arg-name:"FILE" required:"yes" description:"YAML subscription list, - for stdin"`
	} `positional-args:"yes" required:"yes"`

	app *cli
}

func (cmd *opmlExportCommand) Execute(_ []string) error {
	r, err := cmd.app.open(cmd.Args.File)
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.Args.File, err)
	}

	doc, err := decodeExportDocument(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", cmd.Args.File, err)
	}

	meta := doc.Metadata
	if meta == nil {
		meta = &feed.OpmlMetadata{}
	}
	if cmd.Title != "" {
		meta.Title = cmd.Title
	}
	if cmd.OwnerName != "" {
		meta.OwnerName = cmd.OwnerName
	}
	if cmd.OwnerEmail != "" {
		meta.OwnerEmail = cmd.OwnerEmail
	}

	opml, err := feed.NewOpmlGenerator().Run(doc.Subscriptions, meta)
	if err != nil {
		return fmt.Errorf("failed to generate OPML: %w", err)
	}

	_, err = io.WriteString(cmd.app.stdout, opml)
	return err
}

// decodeExportDocument accepts either a document with metadata and
// subscriptions or a bare list of subscriptions.
func decodeExportDocument(data []byte) (*exportDocument, error) {
	var doc exportDocument
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}

	var subs []feed.OpmlSubscription
	if err := yaml.Unmarshal(data, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		return nil, errors.New("no subscriptions found")
	}
	return &exportDocument{Subscriptions: subs}, nil
}
