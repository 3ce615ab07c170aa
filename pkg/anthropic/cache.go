package anthropic

// BuildCachedSystemBlocks turns system prompt parts into content blocks and
// places a single cache breakpoint on the last one, so every part up to and
// including it is served from the prompt cache on repeat calls.
func BuildCachedSystemBlocks(parts ...string) []SystemBlock {
	blocks := make([]SystemBlock, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		blocks = append(blocks, SystemBlock{Text: p})
	}
	if len(blocks) > 0 {
		blocks[len(blocks)-1].CacheControl = &CacheControl{TTL: "1h"}
	}
	return blocks
}
