package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/dadi/api-filestore/domain"
)

var (
	colorOK   = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr  = color.New(color.FgRed, color.Bold).SprintFunc()
	colorInfo = color.New(color.FgBlue).SprintFunc()
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printStatus(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, colorOK("OK"), fmt.Sprintf(format, args...))
}

func printIndexes(w io.Writer, indexes []domain.IndexInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Unique"})
	table.SetAutoWrapText(false)
	for _, idx := range indexes {
		table.Append([]string{idx.Name, strconv.FormatBool(idx.Unique)})
	}
	table.Render()
}

func printStats(w io.Writer, collection string, stats *domain.Stats) {
	fmt.Fprintln(w, colorInfo("Collection:"), collection)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"count", strconv.Itoa(stats.Count)})
	for _, idx := range stats.Indexes {
		kind := "index"
		if idx.Unique {
			kind = "unique index"
		}
		table.Append([]string{kind, idx.Name})
	}
	table.Render()
}
