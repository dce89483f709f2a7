package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/dadi/api-filestore/adapter/decoder"
	"github.com/dadi/api-filestore/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// parseJSON reads a JSON command argument. A missing argument reads as an
// empty object.
func parseJSON(args []string, n int, what string) (any, error) {
	if len(args) <= n || args[n] == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.UnmarshalFromString(args[n], &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", what, err)
	}
	return v, nil
}

func (a *app) findCmd() *cobra.Command {
	var (
		skip, limit int
		sortField   string
		descending  bool
		fields      []string
		options     string
	)
	cmd := &cobra.Command{
		Use:   "find <collection> [filter]",
		Short: "List the documents matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseJSON(args, 1, "filter")
			if err != nil {
				return err
			}

			var opts domain.FindOptions
			if options != "" {
				raw, err := parseJSON([]string{options}, 0, "options")
				if err != nil {
					return err
				}
				if opts, err = (&decoder.Decoder{}).DecodeFindOptions(raw); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("skip") {
				opts.Skip = skip
			}
			if cmd.Flags().Changed("limit") {
				opts.Limit = limit
			}
			if sortField != "" {
				opts.Sort = map[string]int{sortField: 1}
				if descending {
					opts.Sort[sortField] = -1
				}
			}
			if len(fields) > 0 {
				opts.Fields = domain.FieldList(fields)
			}

			res, err := a.conn.Find(cmd.Context(), domain.FindParams{
				Query:      query,
				Collection: args[0],
				Options:    opts,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of documents to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents (0 for the default)")
	cmd.Flags().StringVar(&sortField, "sort", "", "Field to sort by")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort in descending order")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Fields to return")
	cmd.Flags().StringVar(&options, "options", "", "Find options as JSON, overridden by the other flags")
	return cmd
}

func (a *app) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <document|documents>",
		Short: "Insert one document or a list of documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseJSON(args, 1, "documents")
			if err != nil {
				return err
			}
			docs, err := a.conn.Insert(cmd.Context(), domain.InsertParams{
				Data:       data,
				Collection: args[0],
			})
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "inserted %d document(s) into %q", len(docs), args[0])
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <filter> <update>",
		Short: "Apply an update expression to the matching documents",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseJSON(args, 1, "filter")
			if err != nil {
				return err
			}
			update, err := parseJSON(args, 2, "update")
			if err != nil {
				return err
			}
			res, err := a.conn.Update(cmd.Context(), domain.UpdateParams{
				Query:      query,
				Collection: args[0],
				Update:     update,
			})
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "updated %d document(s) in %q", res.MatchedCount, args[0])
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> [filter]",
		Short: "Delete the matching documents",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseJSON(args, 1, "filter")
			if err != nil {
				return err
			}
			res, err := a.conn.Delete(cmd.Context(), domain.DeleteParams{
				Query:      query,
				Collection: args[0],
			})
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "deleted %d document(s) from %q", res.DeletedCount, args[0])
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func (a *app) indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <collection> <specs>",
		Short: `Create indexes, e.g. '{"keys":{"email":1},"options":{"unique":true}}'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseJSON(args, 1, "index specs")
			if err != nil {
				return err
			}
			specs, err := (&decoder.Decoder{}).DecodeIndexSpecs(raw)
			if err != nil {
				return err
			}
			res, err := a.conn.Index(cmd.Context(), args[0], specs)
			if err != nil {
				return err
			}
			for _, r := range res {
				printStatus(cmd.ErrOrStderr(), "index %q ready on %q", r.Index, r.Collection)
			}
			return nil
		},
	}
}

func (a *app) indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes <collection>",
		Short: "List the indexes of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indexes, err := a.conn.GetIndexes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIndexes(cmd.OutOrStdout(), indexes)
			return nil
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <collection>",
		Short: "Show the document count and indexes of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.conn.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), args[0], stats)
			return nil
		},
	}
}

func (a *app) dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop [collection]",
		Short: "Remove every document of a collection, or of the whole database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			if err := a.conn.DropDatabase(cmd.Context(), name); err != nil {
				return err
			}
			if name == "" {
				printStatus(cmd.ErrOrStderr(), "database dropped")
			} else {
				printStatus(cmd.ErrOrStderr(), "collection %q dropped", name)
			}
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the adapter version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), a.conn.Handshake())
		},
	}
}
