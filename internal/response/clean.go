package response

import "strings"

const fence = "```"

// Clean strips code-fence markers around a model reply and slices the
// embedded JSON payload out of any surrounding prose. Text without a JSON
// payload comes back trimmed.
func Clean(text string) string {
	s := stripFence(text, func(tag string) bool {
		return !strings.ContainsAny(tag, "{[")
	})

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s
	}
	return s[start : end+1]
}

// CleanText is the tier-1 path: the trimmed reply is the value. Fences and
// the wrapping quotes some models put around a bare string are removed.
func CleanText(text string) string {
	s := stripFence(text, func(tag string) bool {
		return !strings.ContainsAny(strings.TrimSpace(tag), " \t")
	})
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// stripFence removes a leading and a trailing ``` marker. The rest of the
// opening line is dropped with it when isTag accepts it as a language tag.
func stripFence(text string, isTag func(string) bool) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, fence) {
		s = strings.TrimPrefix(s, fence)
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && isTag(s[:nl]) {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, fence))
}
