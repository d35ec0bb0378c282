package tui

import (
	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"
)

// pasteBlocks reads the clipboard and converts its text to blocks. An empty
// clipboard yields no blocks and no error.
func pasteBlocks(read func() (string, error)) ([]model.Block, error) {
	raw, err := read()
	if err != nil {
		return nil, err
	}
	return blocks.RawHandler(raw), nil
}
