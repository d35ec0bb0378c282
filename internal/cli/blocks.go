package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"

	"github.com/spf13/cobra"
)

func newBlocksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Parse, serialize and list block types",
	}

	cmd.AddCommand(newBlocksParseCmd(app))
	cmd.AddCommand(newBlocksSerializeCmd(app))
	cmd.AddCommand(newBlocksTypesCmd(app))

	return cmd
}

func newBlocksParseCmd(app *App) *cobra.Command {
	var content, file string
	var strict, raw bool

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse block markup into a block tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if content == "" && file == "" {
				file = "-"
			}
			src, _, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}

			var tree []model.Block
			switch {
			case raw:
				tree = blocks.RawHandler(src)
			case strict:
				tree, err = blocks.ParseStrict(src)
				if err != nil {
					return writeErr(cmd, err)
				}
			default:
				tree = blocks.Parse(src)
			}
			tree = blocks.StripClientIDs(tree)
			if tree == nil {
				tree = []model.Block{}
			}
			return writeOut(cmd, app, map[string]any{"data": tree})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Markup to parse")
	cmd.Flags().StringVar(&file, "file", "", "Read markup from a file (default: stdin)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on markup the parser would have to repair")
	cmd.Flags().BoolVar(&raw, "raw", false, "Treat input as pasted text (Markdown/HTML)")
	return cmd
}

func newBlocksSerializeCmd(app *App) *cobra.Command {
	var content, file string

	cmd := &cobra.Command{
		Use:   "serialize",
		Short: "Serialize a JSON block tree into canonical markup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if content == "" && file == "" {
				file = "-"
			}
			src, _, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}

			var tree []model.Block
			if err := json.Unmarshal([]byte(src), &tree); err != nil {
				// Accept the envelope `blocks parse` prints.
				var env struct {
					Data []model.Block `json:"data"`
				}
				if err2 := json.Unmarshal([]byte(src), &env); err2 != nil {
					return writeErr(cmd, fmt.Errorf("parse block tree: %w", err))
				}
				tree = env.Data
			}
			for _, b := range tree {
				if b.Name == "" {
					return writeErr(cmd, errors.New("block without a name"))
				}
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"content": blocks.Serialize(tree)}})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "JSON block tree")
	cmd.Flags().StringVar(&file, "file", "", "Read the JSON tree from a file (default: stdin)")
	return cmd
}

func newBlocksTypesCmd(app *App) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered block types",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := blocks.DefaultRegistry()
			if root != "" {
				if _, ok := reg.Get(root); !ok {
					return writeErr(cmd, errNotFound("block type", root))
				}
			}
			type typeOut struct {
				Name       string   `json:"name"`
				Title      string   `json:"title"`
				Icon       string   `json:"icon"`
				Category   string   `json:"category"`
				Parent     []string `json:"parent,omitempty"`
				Inserter   bool     `json:"inserter"`
				Insertable bool     `json:"insertable"`
			}
			out := []typeOut{}
			for _, bt := range reg.Types() {
				insertable := reg.CanInsertBlockType(bt.Name, root)
				if cmd.Flags().Changed("root") && !insertable {
					continue
				}
				out = append(out, typeOut{
					Name:       bt.Name,
					Title:      bt.Title,
					Icon:       bt.Icon,
					Category:   bt.Category,
					Parent:     bt.Parent,
					Inserter:   bt.Inserter,
					Insertable: insertable,
				})
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Only types insertable inside this block type")
	return cmd
}
