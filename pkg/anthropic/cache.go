package anthropic

// minCachedSystemChars approximates the provider's minimum cacheable prompt
// length; shorter prompts are sent without a cache breakpoint.
const minCachedSystemChars = 4096

// SystemBlocks wraps a system prompt. Long prompts that repeat across every
// question of a batch get an ephemeral cache breakpoint.
func SystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	block := SystemBlock{Text: text}
	if len(text) >= minCachedSystemChars {
		block.CacheControl = &CacheControl{TTL: "5m"}
	}
	return []SystemBlock{block}
}
