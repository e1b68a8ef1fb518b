// Package tags handles hashtag-style tags embedded in task titles.
//
// TickTick's Open API has no first-class tag field on task creation; tags
// travel as "#name" tokens inside the title. This package is the single
// place that representation is parsed and rebuilt. Everything here is pure:
// no I/O, no state, deterministic output.
package tags

import "strings"

// Extract splits a title into its base text and the hashtag tokens it
// carries. Tag case is preserved, the leading '#' is stripped, and
// duplicates are removed keeping the first occurrence. Tokens consisting of
// a bare '#' stay in the base text.
func Extract(title string) (string, []string) {
	var base []string
	var found []string
	for _, token := range strings.Fields(title) {
		if len(token) > 1 && strings.HasPrefix(token, "#") {
			found = append(found, token[1:])
			continue
		}
		base = append(base, token)
	}
	return strings.Join(base, " "), Dedup(found)
}

// Render appends the tag suffix to a base title: "Buy milk" + [home, errand]
// renders as "Buy milk #home #errand". Tags are deduplicated and empty tags
// skipped, so Extract(Render(base, tags)) returns exactly (base, Dedup(tags)).
func Render(base string, tagList []string) string {
	parts := make([]string, 0, 1+len(tagList))
	if base != "" {
		parts = append(parts, base)
	}
	for _, tag := range Dedup(tagList) {
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}

// Merge combines an existing rendered title with an optional replacement
// title and an optional replacement tag list:
//
//   - both supplied: the new title's base and the new tags fully replace the
//     existing ones;
//   - only tags supplied (newTitle nil): the existing base title is kept and
//     only the tag suffix is replaced (an empty non-nil list clears it);
//   - only a title supplied (newTags nil): the new title is taken verbatim,
//     keeping whatever tags it embeds, with no merging against the old tags;
//   - neither supplied: the existing title is returned unchanged.
//
// The final tag set is always deduplicated and rendered in supply order.
func Merge(existing string, newTitle *string, newTags []string) string {
	switch {
	case newTitle != nil && newTags != nil:
		base, _ := Extract(*newTitle)
		return Render(base, newTags)
	case newTitle == nil && newTags != nil:
		base, _ := Extract(existing)
		return Render(base, newTags)
	case newTitle != nil:
		return *newTitle
	default:
		return existing
	}
}

// Dedup removes duplicate and empty tags, preserving first-occurrence order.
// The input slice is not modified.
func Dedup(tagList []string) []string {
	if len(tagList) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tagList))
	out := make([]string, 0, len(tagList))
	for _, tag := range tagList {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
