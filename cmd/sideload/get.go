package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/internal/cli/config"
	"github.com/sideload-dev/sideload/internal/demo"
	"github.com/sideload-dev/sideload/model"
	"github.com/sideload-dev/sideload/store"
	"github.com/sideload-dev/sideload/transport"
)

var (
	getServer   string
	getInclude  []string
	getFields   []string
	getFilter   string
	getPageSize int
	getPageNum  int
	getVerbose  bool
)

var getCmd = &cobra.Command{
	Use:   "get <type> [id]",
	Short: "Fetch and materialize resources from a JSON:API server",
	Long: `Fetch a collection (sideload get articles) or a single resource
(sideload get articles 1), materialize the response into records, and
print them. Side-loaded resources are wired into relationships when
--include is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getServer, "server", "", "server base URL (overrides config)")
	getCmd.Flags().StringSliceVar(&getInclude, "include", nil, "relationships to side-load")
	getCmd.Flags().StringSliceVar(&getFields, "fields", nil, "sparse fieldsets as type:field1,field2")
	getCmd.Flags().StringVar(&getFilter, "filter", "", "server-side filter expression")
	getCmd.Flags().IntVar(&getPageSize, "page-size", 0, "page size")
	getCmd.Flags().IntVar(&getPageNum, "page-number", 0, "page number")
	getCmd.Flags().BoolVarP(&getVerbose, "verbose", "v", false, "log requests")
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	baseURL := cfg.Server.URL
	if getServer != "" {
		baseURL = getServer
	}

	log := zap.NewNop()
	if getVerbose {
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	opts := []transport.Option{
		transport.WithLogger(log),
		transport.WithMaxRetries(cfg.Server.Retries),
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
	}
	if cfg.Auth.Token != "" {
		opts = append(opts, transport.WithBearerToken(cfg.Auth.Token))
	}
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		opts = append(opts, transport.WithCache(transport.NewRedisCache(client, ""), cfg.Cache.TTL))
	}

	st, err := store.New(store.Config{
		Models:  demo.Definitions(),
		Fetcher: transport.New(baseURL, opts...),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	reqOpts, err := requestOptions()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	typeName := args[0]
	if len(args) == 2 {
		rec, err := st.FindRecord(ctx, typeName, args[1], reqOpts)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	}

	result, err := st.FindAll(ctx, typeName, reqOpts)
	if err != nil {
		return err
	}
	for _, rec := range result.Records {
		printRecord(rec)
	}
	if total, ok := result.Document.Meta["total"]; ok {
		color.New(color.Faint).Printf("%v total\n", total)
	}
	return nil
}

// requestOptions builds store options from the flags; --fields entries use
// the form type:field1,field2.
func requestOptions() (*store.Options, error) {
	opts := &store.Options{
		Include: getInclude,
		Filter:  getFilter,
	}
	if getPageSize > 0 || getPageNum > 0 {
		opts.Page = &store.Page{Size: getPageSize, Number: getPageNum}
	}
	for _, spec := range getFields {
		typeName, fields, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --fields value %q, want type:field1,field2", spec)
		}
		if opts.Fields == nil {
			opts.Fields = map[string][]string{}
		}
		opts.Fields[typeName] = strings.Split(fields, ",")
	}
	return opts, nil
}

var (
	headerColor = color.New(color.FgGreen, color.Bold)
	labelColor  = color.New(color.FgCyan)
)

func printRecord(rec model.Record) {
	switch r := rec.(type) {
	case *demo.Article:
		headerColor.Printf("articles/%s\n", r.ID)
		labelColor.Print("  title: ")
		fmt.Println(r.Title)
		if r.Author != nil {
			labelColor.Print("  author: ")
			fmt.Printf("%s %s (@%s)\n", r.Author.FirstName, r.Author.LastName, r.Author.Twitter)
		}
		for _, comment := range r.Comments {
			labelColor.Printf("  comment %s: ", comment.ID)
			fmt.Println(comment.Body)
		}
	case *demo.Comment:
		headerColor.Printf("comments/%s\n", r.ID)
		labelColor.Print("  body: ")
		fmt.Println(r.Body)
	case *demo.Person:
		headerColor.Printf("people/%s\n", r.ID)
		labelColor.Print("  name: ")
		fmt.Printf("%s %s (@%s)\n", r.FirstName, r.LastName, r.Twitter)
	default:
		fmt.Printf("%s\n", rec.RecordID())
	}
}
